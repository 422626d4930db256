package stt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/pkg/audioconv"
)

const cloudRequestTimeout = 120 * time.Second

// NewCloudLoader builds a Loader that sends audio to the OpenAI Whisper API
// instead of running a local model. httpClient may carry a SOCKS transport;
// nil falls back to http.DefaultClient.
func NewCloudLoader(apiKey string, httpClient *http.Client, log *slog.Logger) Loader {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return func(Settings) (Backend, error) {
		if apiKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrModelLoad)
		}
		client := openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(httpClient),
		)
		return &cloudBackend{client: client, log: log}, nil
	}
}

type cloudBackend struct {
	client openai.Client
	log    *slog.Logger
}

func (b *cloudBackend) Transcribe(samples []float32, translate bool) (string, error) {
	wavBytes, err := audioconv.EncodeWAV16k(samples)
	if err != nil {
		return "", err
	}
	file := openai.File(bytes.NewReader(wavBytes), "utterance.wav", "audio/wav")

	ctx, cancel := context.WithTimeout(context.Background(), cloudRequestTimeout)
	defer cancel()

	if translate {
		resp, err := b.client.Audio.Translations.New(ctx, openai.AudioTranslationNewParams{
			File:  file,
			Model: openai.AudioModelWhisper1,
		})
		if err != nil {
			return "", fmt.Errorf("whisper api translation: %w", err)
		}
		return resp.Text, nil
	}

	resp, err := b.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("whisper api transcription: %w", err)
	}
	return resp.Text, nil
}

func (b *cloudBackend) Close() error { return nil }
