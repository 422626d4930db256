// Package stt provides the transcription gateway: a lazily loaded backend
// (local whisper.cpp or an HTTP API) behind a single mutex, with settings
// changes deferred until the next utterance.
package stt

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Sentinel errors for the failure classes the orchestrator tells apart.
var (
	ErrModelLoad    = errors.New("model load failed")
	ErrModelMissing = errors.New("model file not found")
	ErrResource     = errors.New("out of memory")
)

// Backend is a loaded transcription engine.
type Backend interface {
	Transcribe(samples []float32, translate bool) (string, error)
	Close() error
}

// Settings selects which backend instance a Loader builds.
type Settings struct {
	ModelSize string // tiny, base, small, medium, large
	Device    string // cpu or cuda
}

// Loader builds a Backend for the given settings. Loaders are expected to be
// slow: they may download model files or map gigabytes into memory.
type Loader func(Settings) (Backend, error)

// Gateway serializes access to a lazily loaded Backend. The first Transcribe
// after construction or a settings change pays the load cost.
type Gateway struct {
	mu       sync.Mutex
	loader   Loader
	settings Settings
	backend  Backend
	log      *slog.Logger
}

func NewGateway(loader Loader, settings Settings, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{loader: loader, settings: settings, log: log}
}

// Loaded reports whether a backend is resident. Advisory only: the answer
// can change the moment it is returned.
func (g *Gateway) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.backend != nil
}

// Transcribe runs the samples through the backend, loading it first if
// needed. Empty input short-circuits to an empty transcript.
func (g *Gateway) Transcribe(samples []float32, translate bool) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.backend == nil {
		g.log.Info("loading transcription backend",
			"model", g.settings.ModelSize, "device", g.settings.Device)
		b, err := g.loader(g.settings)
		if err != nil {
			return "", err
		}
		g.backend = b
	}

	text, err := g.backend.Transcribe(samples, translate)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ChangeSettings updates the model size and/or device. Empty strings keep
// the current value. Any change unloads the backend so the next utterance
// loads the new configuration.
func (g *Gateway) ChangeSettings(modelSize, device string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.settings
	if modelSize != "" {
		next.ModelSize = modelSize
	}
	if device != "" {
		next.Device = device
	}
	if next == g.settings {
		return
	}
	g.settings = next
	g.unloadLocked()
}

// Unload drops the resident backend, freeing its memory.
func (g *Gateway) Unload() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unloadLocked()
}

func (g *Gateway) unloadLocked() {
	if g.backend == nil {
		return
	}
	if err := g.backend.Close(); err != nil {
		g.log.Warn("backend close failed", "err", err)
	}
	g.backend = nil
}
