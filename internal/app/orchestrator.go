// Package app contains the push-to-talk orchestrator: the one state machine
// that ties the joystick edge source, the capture session, the transcription
// gateway and the keystroke injector together.
//
// Concurrency model: all state lives on the home Loop. Joystick edges arrive
// from the polling goroutine via PressEdge/ReleaseEdge, which marshal onto
// the loop. Each utterance spawns one short-lived worker goroutine that
// performs the blocking transcribe and inject calls and reports back through
// posted closures. A watchdog orphans workers that outlive the transcription
// timeout; an orphaned worker's eventual result is dropped by a generation
// check before every state update.
package app

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/stt"
)

// User-facing detail strings shown next to the state.
const (
	DetailTranscribing      = "transcribing"
	DetailLoadingModel      = "loading model"
	DetailDeviceUnavailable = "microphone unavailable"
	DetailModelLoad         = "download failed, check connection"
	DetailResource          = "not enough memory, try a smaller model"
	DetailModelMissing      = "model file not found"
	DetailTimeout           = "timed out, model may still be loading"
	DetailInjection         = "failed to send message"
)

// maxDetailLen bounds how much of an unclassified error message reaches the
// display.
const maxDetailLen = 80

// CaptureSession is one armed recording. Stop disarms and hands over
// everything buffered so far; the session is dead afterwards.
type CaptureSession interface {
	Stop() []float32
	Duration() float64
}

// Microphone arms capture sessions, one per recording.
type Microphone interface {
	Start() (CaptureSession, error)
}

// Transcriber is the transcription gateway boundary. Transcribe blocks,
// potentially for tens of seconds when the model is not loaded yet.
type Transcriber interface {
	Transcribe(samples []float32, translate bool) (string, error)
	Loaded() bool
}

// Injector types text into the game chat. It blocks for the duration of its
// configured key delays and reports success.
type Injector interface {
	Inject(text string) bool
}

// StatusSink receives every state transition and each transcribed message.
// Calls happen on the home loop.
type StatusSink interface {
	StateChanged(s State, detail string)
	Transcript(text string)
}

// Timing groups the orchestrator's delays so tests can compress them.
type Timing struct {
	TranscribeTimeout time.Duration // watchdog on the worker
	SentHold          time.Duration // how long Sent stays visible
	ErrorHoldShort    time.Duration // injection / generic errors
	ErrorHoldDevice   time.Duration // microphone unavailable
	ErrorHoldLong     time.Duration // model load / memory / timeout
}

func DefaultTiming() Timing {
	return Timing{
		TranscribeTimeout: 60 * time.Second,
		SentHold:          1500 * time.Millisecond,
		ErrorHoldShort:    2 * time.Second,
		ErrorHoldDevice:   3 * time.Second,
		ErrorHoldLong:     4 * time.Second,
	}
}

// Options configures New. The zero value is usable: production timing,
// no translation, default logger.
type Options struct {
	Timing    Timing
	Translate bool
	Logger    *slog.Logger
}

// Orchestrator owns the push-to-talk state machine.
type Orchestrator struct {
	loop      *Loop
	mic       Microphone
	stt       Transcriber
	injector  Injector
	sink      StatusSink
	timing    Timing
	translate bool
	log       *slog.Logger

	// Everything below is touched only by closures running on the loop,
	// except gen, which workers read to notice they have been orphaned.
	state   State
	detail  string
	session CaptureSession
	gen     atomic.Uint64
	seq     uint64 // bumps on every transition; stale timed reverts no-op
}

func New(loop *Loop, mic Microphone, tr Transcriber, in Injector, sink StatusSink, opts Options) *Orchestrator {
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		loop:      loop,
		mic:       mic,
		stt:       tr,
		injector:  in,
		sink:      sink,
		timing:    opts.Timing,
		translate: opts.Translate,
		log:       opts.Logger,
		state:     StateIdle,
	}
}

// PressEdge reports a PTT button press. Safe to call from any goroutine.
func (o *Orchestrator) PressEdge() {
	o.loop.Post(o.onPress)
}

// ReleaseEdge reports a PTT button release. Safe to call from any goroutine.
func (o *Orchestrator) ReleaseEdge() {
	o.loop.Post(o.onRelease)
}

// Snapshot returns the current state and detail, marshaled through the loop
// so callers on other goroutines never race the single writer.
func (o *Orchestrator) Snapshot() (State, string) {
	type snap struct {
		s State
		d string
	}
	ch := make(chan snap, 1)
	o.loop.Post(func() { ch <- snap{o.state, o.detail} })
	v := <-ch
	return v.s, v.d
}

func (o *Orchestrator) onPress() {
	if o.state != StateIdle {
		o.log.Debug("ptt press ignored", "state", o.state)
		return
	}
	session, err := o.mic.Start()
	if err != nil {
		o.log.Warn("failed to arm microphone", "err", err)
		o.toError(DetailDeviceUnavailable, o.timing.ErrorHoldDevice)
		return
	}
	o.session = session
	o.setState(StateRecording, "")
}

func (o *Orchestrator) onRelease() {
	if o.state != StateRecording {
		o.log.Debug("ptt release ignored", "state", o.state)
		return
	}
	samples := o.session.Stop()
	o.session = nil

	if len(samples) == 0 {
		o.setState(StateIdle, "")
		return
	}

	detail := DetailTranscribing
	if !o.stt.Loaded() {
		detail = DetailLoadingModel
	}
	o.setState(StateTranscribing, detail)

	gen := o.gen.Add(1)
	o.armWatchdog(gen)
	go o.work(gen, samples)
}

// work runs on a per-utterance goroutine. It never touches orchestrator
// state directly; results cross back via posted closures that drop stale
// generations.
func (o *Orchestrator) work(gen uint64, samples []float32) {
	text, err := o.stt.Transcribe(samples, o.translate)
	if err != nil {
		o.loop.Post(func() { o.onTranscribeError(gen, err) })
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		o.loop.Post(func() { o.onEmptyTranscript(gen) })
		return
	}
	o.loop.Post(func() { o.onSending(gen) })

	// Advisory check: if the watchdog already fired, do not type into the
	// game. The posted closures remain the authoritative gate.
	if o.gen.Load() != gen {
		o.log.Warn("dropping transcript from timed-out worker", "text", text)
		return
	}
	ok := o.injector.Inject(text)
	o.loop.Post(func() { o.onInjected(gen, text, ok) })
}

func (o *Orchestrator) onTranscribeError(gen uint64, err error) {
	if o.gen.Load() != gen {
		return
	}
	o.log.Error("transcription failed", "err", err)
	detail, hold := o.classify(err)
	o.toError(detail, hold)
}

func (o *Orchestrator) onEmptyTranscript(gen uint64) {
	if o.gen.Load() != gen {
		return
	}
	o.setState(StateIdle, "")
}

func (o *Orchestrator) onSending(gen uint64) {
	if o.gen.Load() != gen || o.state != StateTranscribing {
		return
	}
	o.setState(StateSending, "")
}

func (o *Orchestrator) onInjected(gen uint64, text string, ok bool) {
	if o.gen.Load() != gen {
		return
	}
	if !ok {
		o.toError(DetailInjection, o.timing.ErrorHoldShort)
		return
	}
	o.sink.Transcript(text)
	o.setState(StateSent, "")
	o.revertAfter(o.timing.SentHold)
}

func (o *Orchestrator) armWatchdog(gen uint64) {
	o.loop.After(o.timing.TranscribeTimeout, func() {
		if o.gen.Load() != gen || o.state != StateTranscribing {
			return
		}
		// Orphan the worker: whatever it delivers from now on is stale.
		o.gen.Add(1)
		o.log.Warn("transcription watchdog fired", "timeout", o.timing.TranscribeTimeout)
		o.toError(DetailTimeout, o.timing.ErrorHoldLong)
	})
}

func (o *Orchestrator) classify(err error) (string, time.Duration) {
	switch {
	case errors.Is(err, stt.ErrResource):
		return DetailResource, o.timing.ErrorHoldLong
	case errors.Is(err, stt.ErrModelMissing):
		return DetailModelMissing, o.timing.ErrorHoldLong
	case errors.Is(err, stt.ErrModelLoad):
		return DetailModelLoad, o.timing.ErrorHoldLong
	default:
		msg := err.Error()
		if len(msg) > maxDetailLen {
			msg = msg[:maxDetailLen] + "..."
		}
		return msg, o.timing.ErrorHoldShort
	}
}

func (o *Orchestrator) toError(detail string, hold time.Duration) {
	o.setState(StateError, detail)
	o.revertAfter(hold)
}

func (o *Orchestrator) revertAfter(d time.Duration) {
	seq := o.seq
	o.loop.After(d, func() {
		if o.seq != seq {
			return
		}
		o.setState(StateIdle, "")
	})
}

func (o *Orchestrator) setState(s State, detail string) {
	o.seq++
	o.state = s
	o.detail = detail
	o.sink.StateChanged(s, detail)
}
