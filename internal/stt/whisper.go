package stt

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// NewWhisperLoader builds a Loader backed by a local whisper.cpp model.
// Model files live under modelDir and are fetched on demand when
// autoDownload is set.
func NewWhisperLoader(modelDir string, autoDownload bool, log *slog.Logger) Loader {
	if log == nil {
		log = slog.Default()
	}
	return func(s Settings) (Backend, error) {
		path, err := EnsureModel(modelDir, s.ModelSize, autoDownload, log)
		if err != nil {
			return nil, err
		}
		model, err := whisper.New(path)
		if err != nil {
			return nil, classifyLoadError(err)
		}
		log.Info("whisper model loaded", "path", path)
		return &whisperBackend{model: model}, nil
	}
}

type whisperBackend struct {
	model whisper.Model
}

func (b *whisperBackend) Transcribe(samples []float32, translate bool) (string, error) {
	ctx, err := b.model.NewContext()
	if err != nil {
		return "", classifyLoadError(err)
	}
	if err := ctx.SetLanguage("auto"); err != nil {
		return "", err
	}
	ctx.SetTranslate(translate)
	ctx.SetThreads(uint(runtime.NumCPU()))

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var sb strings.Builder
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(seg.Text)
	}
	return sb.String(), nil
}

func (b *whisperBackend) Close() error {
	return b.model.Close()
}

// classifyLoadError maps allocation failures to ErrResource so the user is
// told to pick a smaller model rather than to check their connection.
func classifyLoadError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "memory") || strings.Contains(msg, "alloc") {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	return fmt.Errorf("%w: %v", ErrModelLoad, err)
}
