package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	if cfg.Whisper.Model != "small" || cfg.Joystick.Button != -1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Chat.ReadTeam || cfg.Chat.ReadAll {
		t.Fatalf("team chat should be read by default, all chat not: %+v", cfg.Chat)
	}
}

func TestLoadMalformedFileUsesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("whisper = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load(path, nil)
	if cfg.Whisper.Model != "small" {
		t.Fatalf("malformed file must fall back to defaults, got %+v", cfg.Whisper)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Joystick.Name = "VKB Gladiator"
	cfg.Joystick.Button = 4
	cfg.Whisper.Model = "medium"
	cfg.Whisper.Translate = true
	cfg.Chat.Enabled = true
	cfg.Chat.OwnUsername = "Ace"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got := Load(path, nil)
	if got != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.toml")
	body := "[whisper]\nmodel = \"tiny\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path, nil)
	if cfg.Whisper.Model != "tiny" {
		t.Fatalf("override not applied: %+v", cfg.Whisper)
	}
	if cfg.Injection.ChatKey != "enter" || cfg.Injection.DelayMS != 50 {
		t.Fatalf("unrelated defaults lost: %+v", cfg.Injection)
	}
}
