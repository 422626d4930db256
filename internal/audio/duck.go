package audio

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Ducker lowers the volume of every other PulseAudio sink input while
// speech is playing and restores it afterwards. All failures are soft: a
// system without pactl simply plays speech over the game at full volume.
type Ducker struct {
	mu       sync.Mutex
	level    int // percentage applied while ducked
	restored map[string]string
	log      *slog.Logger
}

func NewDucker(level int, log *slog.Logger) *Ducker {
	if level <= 0 || level > 100 {
		level = 40
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ducker{level: level, log: log}
}

// Duck saves the current volume of every sink input and lowers them.
func (d *Ducker) Duck() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.restored != nil {
		return
	}

	inputs, err := listSinkInputs()
	if err != nil {
		d.log.Debug("volume ducking unavailable", "err", err)
		return
	}
	d.restored = make(map[string]string, len(inputs))
	for id, vol := range inputs {
		d.restored[id] = vol
		if err := setSinkInputVolume(id, strconv.Itoa(d.level)+"%"); err != nil {
			d.log.Debug("failed to duck sink input", "id", id, "err", err)
		}
	}
}

// Restore puts every ducked sink input back to its saved volume.
func (d *Ducker) Restore() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.restored == nil {
		return
	}
	for id, vol := range d.restored {
		if err := setSinkInputVolume(id, vol); err != nil {
			d.log.Debug("failed to restore sink input", "id", id, "err", err)
		}
	}
	d.restored = nil
}

// listSinkInputs returns sink-input id -> current front-left volume
// percentage, parsed from `pactl list sink-inputs`.
func listSinkInputs() (map[string]string, error) {
	out, err := exec.Command("pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, err
	}

	inputs := make(map[string]string)
	var current string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "Sink Input #"); ok {
			current = rest
			continue
		}
		if current == "" || !strings.HasPrefix(line, "Volume:") {
			continue
		}
		if i := strings.IndexByte(line, '%'); i > 0 {
			j := strings.LastIndexAny(line[:i], " /")
			inputs[current] = strings.TrimSpace(line[j+1:i]) + "%"
		}
		current = ""
	}
	return inputs, sc.Err()
}

func setSinkInputVolume(id, volume string) error {
	if err := exec.Command("pactl", "set-sink-input-volume", id, volume).Run(); err != nil {
		return fmt.Errorf("pactl set-sink-input-volume %s %s: %w", id, volume, err)
	}
	return nil
}
