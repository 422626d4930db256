// Package config loads and persists the TOML settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Joystick  Joystick  `toml:"joystick"`
	Whisper   Whisper   `toml:"whisper"`
	Injection Injection `toml:"injection"`
	Audio     Audio     `toml:"audio"`
	Chat      Chat      `toml:"chat"`
	TTS       TTS       `toml:"tts"`
}

type Joystick struct {
	Name   string `toml:"name"`
	Button int    `toml:"button"`
}

type Whisper struct {
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	Translate      bool   `toml:"translate"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ModelDir       string `toml:"model_dir"`
	AutoDownload   bool   `toml:"auto_download"`
}

type Injection struct {
	DelayMS int    `toml:"delay_ms"`
	ChatKey string `toml:"chat_key"`
}

type Audio struct {
	InputDevice int `toml:"input_device"`
}

type Chat struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	OwnUsername    string `toml:"own_username"`
	ReadTeam       bool   `toml:"read_team"`
	ReadAll        bool   `toml:"read_all"`
}

type TTS struct {
	Backend string `toml:"backend"` // espeak or remote
	Voice   string `toml:"voice"`
	Rate    int    `toml:"rate"`
	URL     string `toml:"url"`
}

// Default returns the configuration used when no file exists. The button is
// unbound until the user captures one.
func Default() Config {
	modelDir := "models"
	if home, err := os.UserHomeDir(); err == nil {
		modelDir = filepath.Join(home, ".local", "share", "wtvc", "models")
	}
	return Config{
		Joystick: Joystick{Button: -1},
		Whisper: Whisper{
			Model:          "small",
			Device:         "cpu",
			TimeoutSeconds: 60,
			ModelDir:       modelDir,
			AutoDownload:   true,
		},
		Injection: Injection{DelayMS: 50, ChatKey: "enter"},
		Audio:     Audio{InputDevice: -1},
		Chat: Chat{
			URL:            "http://localhost:8111",
			PollIntervalMS: 500,
			ReadTeam:       true,
		},
		TTS: TTS{Backend: "espeak", Voice: "en", Rate: 150},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "wtvc.toml"
	}
	return filepath.Join(dir, "wtvc", "config.toml")
}

// Load reads the config at path, falling back to defaults when the file is
// missing or malformed. A bad config never prevents startup.
func Load(path string, log *slog.Logger) Config {
	if log == nil {
		log = slog.Default()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no config file, using defaults", "path", path)
		} else {
			log.Warn("cannot read config, using defaults", "path", path, "err", err)
		}
		return cfg
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		log.Warn("malformed config, using defaults", "path", path, "err", err)
		return Default()
	}
	return cfg
}

// Save writes cfg to path, creating parent directories as needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
