// Package audio wraps portaudio capture into single-use recording sessions
// producing the canonical 16 kHz mono float32 PCM.
package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	captureRate     = 16000
	framesPerBuffer = 1024
)

// Microphone opens capture sessions on a fixed input device. A negative
// device index selects the system default.
type Microphone struct {
	device int
	log    *slog.Logger
}

func NewMicrophone(device int, log *slog.Logger) *Microphone {
	if log == nil {
		log = slog.Default()
	}
	return &Microphone{device: device, log: log}
}

// Start opens and arms a new capture session. On any failure nothing is
// left open and the error is returned as-is.
func (m *Microphone) Start() (*Session, error) {
	s := &Session{}

	var stream *portaudio.Stream
	var err error
	if m.device < 0 {
		stream, err = portaudio.OpenDefaultStream(1, 0, captureRate, framesPerBuffer, s.push)
	} else {
		devices, derr := portaudio.Devices()
		if derr != nil {
			return nil, fmt.Errorf("enumerate devices: %w", derr)
		}
		if m.device >= len(devices) {
			return nil, fmt.Errorf("input device %d does not exist", m.device)
		}
		p := portaudio.LowLatencyParameters(devices[m.device], nil)
		p.Input.Channels = 1
		p.SampleRate = captureRate
		p.FramesPerBuffer = framesPerBuffer
		stream, err = portaudio.OpenStream(p, s.push)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start capture stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.armed = true
	s.mu.Unlock()

	m.log.Debug("capture session armed", "device", m.device)
	return s, nil
}

// Session is one armed recording. The portaudio callback appends blocks
// while armed; Stop disarms, tears the stream down and concatenates them.
type Session struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	armed   bool
	chunks  [][]float32
	samples int
}

// push is the portaudio input callback. The block buffer is reused by the
// driver between calls, so it is copied before being kept.
func (s *Session) push(in []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	block := make([]float32, len(in))
	copy(block, in)
	s.chunks = append(s.chunks, block)
	s.samples += len(block)
}

// Stop disarms the session and returns everything captured, in order. It is
// safe to call on a zero-value session and is idempotent; later calls return
// the same concatenated audio.
func (s *Session) Stop() []float32 {
	s.mu.Lock()
	s.armed = false
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		// Teardown errors do not invalidate audio that was already buffered.
		_ = stream.Stop()
		_ = stream.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, 0, s.samples)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// Duration returns the captured audio length in seconds so far.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.samples) / captureRate
}
