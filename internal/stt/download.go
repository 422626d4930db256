package stt

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

const modelURLFormat = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-%s.bin"

// ModelPath returns where the ggml model for the given size lives under dir.
func ModelPath(dir, size string) string {
	return filepath.Join(dir, fmt.Sprintf("ggml-%s.bin", size))
}

// EnsureModel makes sure the ggml model file for size exists under dir,
// downloading it when allowed. A missing file with downloads disabled maps
// to ErrModelMissing; a failed download maps to ErrModelLoad.
func EnsureModel(dir, size string, autoDownload bool, log *slog.Logger) (string, error) {
	path := ModelPath(dir, size)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !autoDownload {
		return "", fmt.Errorf("%w: %s", ErrModelMissing, path)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	url := fmt.Sprintf(modelURLFormat, size)
	log.Info("downloading whisper model", "size", size, "url", url)

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %s", ErrModelLoad, resp.Status)
	}

	// Download to a temp name so a partial file never passes the stat check.
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	log.Info("whisper model downloaded", "path", path)
	return path, nil
}
