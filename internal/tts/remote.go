package tts

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/pkg/audioconv"
)

// RemoteVoice fetches synthesized speech from an HTTP endpoint and plays it
// locally. The endpoint takes text and voice query parameters and answers
// with encoded audio (wav, mp3 or ogg).
type RemoteVoice struct {
	Endpoint string
	Voice    string
	Client   *http.Client
}

// NewRemoteFactory returns a Factory producing voices backed by endpoint.
func NewRemoteFactory(endpoint, voice string) Factory {
	client := &http.Client{Timeout: 15 * time.Second}
	return func() (Voice, error) {
		if endpoint == "" {
			return nil, fmt.Errorf("tts endpoint not configured")
		}
		return &RemoteVoice{Endpoint: endpoint, Voice: voice, Client: client}, nil
	}
}

// Say fetches audio for text and blocks until playback completes.
func (v *RemoteVoice) Say(text string) error {
	q := url.Values{}
	q.Set("text", text)
	if v.Voice != "" {
		q.Set("voice", v.Voice)
	}

	sep := "?"
	if strings.Contains(v.Endpoint, "?") {
		sep = "&"
	}
	resp, err := v.Client.Get(v.Endpoint + sep + q.Encode())
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts endpoint returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("tts response: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	format, ok := audioconv.FormatFromContentType(ct)
	if !ok {
		format, ok = audioconv.SniffFormat(data)
		if !ok {
			return fmt.Errorf("cannot determine audio format of tts response (%s)", ct)
		}
	}

	pcm, err := audioconv.DecodeToPCM16k(data, format)
	if err != nil {
		return fmt.Errorf("decode tts audio: %w", err)
	}
	return playPCM(pcm)
}
