// Package joystick polls HID devices for the push-to-talk button and turns
// raw button bitmasks into press/release edges.
package joystick

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sdk "github.com/0xcafed00d/joystick"
)

const (
	maxDevices   = 8
	pollInterval = 10 * time.Millisecond
)

// DeviceInfo describes one attached joystick.
type DeviceInfo struct {
	ID      int
	Name    string
	Buttons int
}

// device is the slice of the driver the poller needs; the indirection lets
// tests feed scripted button states.
type device interface {
	Name() string
	ButtonCount() int
	Buttons() (uint32, error)
	Close()
}

type sdkDevice struct {
	js sdk.Joystick
}

func (d sdkDevice) Name() string     { return d.js.Name() }
func (d sdkDevice) ButtonCount() int { return d.js.ButtonCount() }
func (d sdkDevice) Close()           { d.js.Close() }

func (d sdkDevice) Buttons() (uint32, error) {
	state, err := d.js.Read()
	if err != nil {
		return 0, err
	}
	return state.Buttons, nil
}

func openSDK(id int) (device, error) {
	js, err := sdk.Open(id)
	if err != nil {
		return nil, err
	}
	return sdkDevice{js: js}, nil
}

type tracked struct {
	dev  device
	prev uint32
}

// Poller watches every attached joystick at a fixed interval. Edges on the
// selected device+button fire onPress/onRelease; any press anywhere fires
// onAny, which drives button-binding capture in setup.
type Poller struct {
	mu      sync.Mutex
	open    func(id int) (device, error)
	devices map[int]*tracked
	order   []int

	selected atomic.Int32 // device id, -1 when unbound
	button   atomic.Int32 // button index, -1 when unbound

	onPress   func()
	onRelease func()
	onAny     atomic.Pointer[func(devID, button int)]

	stop chan struct{}
	done chan struct{}
	log  *slog.Logger
}

func NewPoller(onPress, onRelease func(), log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	p := &Poller{
		open:      openSDK,
		devices:   make(map[int]*tracked),
		onPress:   onPress,
		onRelease: onRelease,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       log,
	}
	p.selected.Store(-1)
	p.button.Store(-1)
	return p
}

// Refresh closes and re-enumerates the first maxDevices joystick slots,
// returning what was found. Hot-plugged devices appear after a Refresh.
func (p *Poller) Refresh() []DeviceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.devices {
		t.dev.Close()
	}
	p.devices = make(map[int]*tracked)
	p.order = p.order[:0]

	var infos []DeviceInfo
	for id := 0; id < maxDevices; id++ {
		dev, err := p.open(id)
		if err != nil {
			continue
		}
		p.devices[id] = &tracked{dev: dev}
		p.order = append(p.order, id)
		infos = append(infos, DeviceInfo{ID: id, Name: dev.Name(), Buttons: dev.ButtonCount()})
	}
	p.log.Info("joysticks enumerated", "count", len(infos))
	return infos
}

// SelectByName binds the PTT to the first device whose name matches.
// Returns false when no attached device has that name.
func (p *Poller) SelectByName(name string, button int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.order {
		if p.devices[id].dev.Name() == name {
			p.selected.Store(int32(id))
			p.button.Store(int32(button))
			return true
		}
	}
	return false
}

// Select binds the PTT to a device id and button index directly.
func (p *Poller) Select(devID, button int) {
	p.selected.Store(int32(devID))
	p.button.Store(int32(button))
}

// Selected returns the bound device id and button, or -1, -1.
func (p *Poller) Selected() (devID, button int) {
	return int(p.selected.Load()), int(p.button.Load())
}

// CaptureNext arranges for fn to be called once on the next button press on
// any device, then clears itself. Used to let the user bind the PTT button
// by pressing it.
func (p *Poller) CaptureNext(fn func(devID, button int)) {
	p.onAny.Store(&fn)
}

// Run polls until ctx-free Stop is called.
func (p *Poller) Run() {
	defer close(p.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// Stop halts polling and closes every device.
func (p *Poller) Stop() {
	close(p.stop)
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.devices {
		t.dev.Close()
	}
	p.devices = make(map[int]*tracked)
	p.order = p.order[:0]
}

func (p *Poller) tick() {
	// Callbacks run after the lock is released; a capture callback may call
	// back into Refresh or Select.
	var fire []func()

	p.mu.Lock()
	sel := int(p.selected.Load())
	btn := int(p.button.Load())

	for _, id := range p.order {
		t := p.devices[id]
		buttons, err := t.dev.Buttons()
		if err != nil {
			// Unplugged mid-session; drop it until the next Refresh.
			p.log.Warn("joystick read failed", "id", id, "err", err)
			t.dev.Close()
			delete(p.devices, id)
			continue
		}
		changed := buttons ^ t.prev
		t.prev = buttons
		if changed == 0 {
			continue
		}
		for b := 0; b < 32; b++ {
			bit := uint32(1) << b
			if changed&bit == 0 {
				continue
			}
			pressed := buttons&bit != 0
			if pressed {
				if capture := p.onAny.Swap(nil); capture != nil {
					id, b := id, b
					fire = append(fire, func() { (*capture)(id, b) })
				}
			}
			if id == sel && b == btn {
				if pressed {
					fire = append(fire, p.onPress)
				} else {
					fire = append(fire, p.onRelease)
				}
			}
		}
	}

	// Compact order after removals.
	if len(p.order) != len(p.devices) {
		order := p.order[:0]
		for _, id := range p.order {
			if _, ok := p.devices[id]; ok {
				order = append(order, id)
			}
		}
		p.order = order
	}
	p.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}
