package joystick

import (
	"errors"
	"testing"
)

type fakeDevice struct {
	name    string
	buttons uint32
	err     error
	closed  bool
}

func (f *fakeDevice) Name() string     { return f.name }
func (f *fakeDevice) ButtonCount() int { return 12 }
func (f *fakeDevice) Close()           { f.closed = true }

func (f *fakeDevice) Buttons() (uint32, error) {
	return f.buttons, f.err
}

func newTestPoller(t *testing.T, devs map[int]*fakeDevice, onPress, onRelease func()) *Poller {
	t.Helper()
	p := NewPoller(onPress, onRelease, nil)
	p.open = func(id int) (device, error) {
		d, ok := devs[id]
		if !ok {
			return nil, errors.New("no such device")
		}
		return d, nil
	}
	p.Refresh()
	return p
}

func TestPollerEdgeDetection(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{name: "T.16000M"}
	var presses, releases int
	p := newTestPoller(t, map[int]*fakeDevice{0: dev},
		func() { presses++ }, func() { releases++ })
	p.Select(0, 2)

	dev.buttons = 1 << 2
	p.tick()
	p.tick() // held, no new edge
	dev.buttons = 0
	p.tick()

	if presses != 1 || releases != 1 {
		t.Fatalf("got %d presses, %d releases; want 1, 1", presses, releases)
	}
}

func TestPollerIgnoresOtherButtonsAndDevices(t *testing.T) {
	t.Parallel()

	dev0 := &fakeDevice{name: "stick"}
	dev1 := &fakeDevice{name: "throttle"}
	var presses int
	p := newTestPoller(t, map[int]*fakeDevice{0: dev0, 1: dev1},
		func() { presses++ }, func() {})
	p.Select(0, 5)

	dev0.buttons = 1 << 4 // wrong button
	dev1.buttons = 1 << 5 // right button, wrong device
	p.tick()

	if presses != 0 {
		t.Fatalf("expected no presses, got %d", presses)
	}
}

func TestPollerCaptureNext(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{name: "stick"}
	p := newTestPoller(t, map[int]*fakeDevice{0: dev}, func() {}, func() {})

	var capturedDev, capturedBtn int
	captures := 0
	p.CaptureNext(func(devID, button int) {
		captures++
		capturedDev, capturedBtn = devID, button
	})

	dev.buttons = 1 << 7
	p.tick()
	dev.buttons = 0
	p.tick()
	dev.buttons = 1 << 3 // after capture cleared itself
	p.tick()

	if captures != 1 {
		t.Fatalf("capture must fire exactly once, fired %d times", captures)
	}
	if capturedDev != 0 || capturedBtn != 7 {
		t.Fatalf("captured %d/%d, want 0/7", capturedDev, capturedBtn)
	}
}

func TestPollerDropsFailedDevice(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{name: "stick", err: errors.New("unplugged")}
	p := newTestPoller(t, map[int]*fakeDevice{0: dev}, func() {}, func() {})

	p.tick()
	if !dev.closed {
		t.Fatalf("failed device must be closed")
	}
	p.tick() // must not read the dropped device again
}

func TestPollerSelectByName(t *testing.T) {
	t.Parallel()

	p := newTestPoller(t, map[int]*fakeDevice{
		0: {name: "throttle"},
		1: {name: "VKB Gladiator"},
	}, func() {}, func() {})

	if !p.SelectByName("VKB Gladiator", 3) {
		t.Fatalf("expected to find the device by name")
	}
	if dev, btn := p.Selected(); dev != 1 || btn != 3 {
		t.Fatalf("selected %d/%d, want 1/3", dev, btn)
	}
	if p.SelectByName("missing", 0) {
		t.Fatalf("unknown name must not bind")
	}
}
