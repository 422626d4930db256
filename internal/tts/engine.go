// Package tts reads incoming chat aloud. A bounded queue feeds a single
// speaking goroutine; backends are espeak-ng in-process or a remote HTTP
// synthesis endpoint.
package tts

import (
	"log/slog"
	"sync"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/audio"
)

const (
	queueDepth  = 5
	maxUtterLen = 200
)

// Voice synthesizes and plays one utterance. Say blocks until playback is
// done.
type Voice interface {
	Say(text string) error
}

// Factory builds a fresh Voice per utterance. espeak-ng keeps global state
// that does not survive concurrent or reused handles, so one-shot voices
// keep the backend boundary simple for both backends.
type Factory func() (Voice, error)

// Engine serializes speech. Enqueue never blocks; when the queue is full
// during a busy firefight the oldest unspoken lines simply stay unspoken.
type Engine struct {
	factory Factory
	ducker  *audio.Ducker
	queue   chan string
	log     *slog.Logger

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func NewEngine(factory Factory, ducker *audio.Ducker, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		factory: factory,
		ducker:  ducker,
		queue:   make(chan string, queueDepth),
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Say queues text for speech, truncating very long messages. Returns false
// when the queue is full and the text was dropped.
func (e *Engine) Say(text string) bool {
	if text == "" {
		return false
	}
	if len(text) > maxUtterLen {
		text = text[:maxUtterLen] + "..."
	}
	select {
	case e.queue <- text:
		return true
	default:
		e.log.Warn("speech queue full, dropping message")
		return false
	}
}

// Run speaks queued messages until Stop. Call once, on its own goroutine.
func (e *Engine) Run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case text := <-e.queue:
			e.speak(text)
		}
	}
}

// Stop halts the engine after the current utterance finishes.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
	<-e.done
}

func (e *Engine) speak(text string) {
	voice, err := e.factory()
	if err != nil {
		e.log.Error("speech backend unavailable", "err", err)
		return
	}
	if e.ducker != nil {
		e.ducker.Duck()
		defer e.ducker.Restore()
	}
	if err := voice.Say(text); err != nil {
		e.log.Error("speech synthesis failed", "err", err)
	}
}
