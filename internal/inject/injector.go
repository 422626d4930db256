// Package inject types transcripts into the game chat box: open chat, paste
// from the clipboard, press enter. Pasting instead of typing keeps non-ASCII
// transcripts intact and is much faster than per-character key events.
package inject

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Keyboard emits key events. Press and Release are separate so a failed
// press can still be followed by a release, keeping modifiers from sticking.
type Keyboard interface {
	Press(ctrl bool, keys ...int) error
	Release(ctrl bool, keys ...int) error
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(text string) error
}

// Injector sends text to the game chat via keystrokes.
type Injector struct {
	kb      Keyboard
	clip    Clipboard
	delay   time.Duration
	chatKey int
	log     *slog.Logger
}

func New(log *slog.Logger) *Injector {
	if log == nil {
		log = slog.Default()
	}
	return &Injector{
		kb:      sysKeyboard{},
		clip:    sysClipboard{},
		delay:   50 * time.Millisecond,
		chatKey: keybd_event.VK_ENTER,
		log:     log,
	}
}

// SetDelay sets the pause between the chat-open, paste and send keystrokes.
// The game needs the chat box to actually be focused before the paste lands.
func (in *Injector) SetDelay(ms int) {
	if ms < 0 {
		ms = 0
	}
	in.delay = time.Duration(ms) * time.Millisecond
}

// SetChatKey picks which key opens the chat box, by config name.
func (in *Injector) SetChatKey(name string) error {
	code, err := ChatKey(name)
	if err != nil {
		return err
	}
	in.chatKey = code
	return nil
}

// Inject opens the chat box, pastes text and sends it. Returns whether the
// whole sequence succeeded. Empty text is a no-op failure.
func (in *Injector) Inject(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if err := in.tap(in.chatKey); err != nil {
		in.log.Error("failed to open chat box", "err", err)
		return false
	}
	time.Sleep(in.delay)

	if err := in.clip.Write(text); err != nil {
		in.log.Error("clipboard write failed", "err", err)
		return false
	}

	// Release runs even when the press failed so ctrl cannot stay held down
	// and turn later game input into hotkeys.
	errPress := in.kb.Press(true, keybd_event.VK_V)
	errRelease := in.kb.Release(true, keybd_event.VK_V)
	if errPress != nil || errRelease != nil {
		in.log.Error("paste keystroke failed", "press", errPress, "release", errRelease)
		return false
	}
	time.Sleep(in.delay)

	if err := in.tap(keybd_event.VK_ENTER); err != nil {
		in.log.Error("failed to send chat message", "err", err)
		return false
	}

	in.log.Info("message injected", "chars", len(text))
	return true
}

func (in *Injector) tap(key int) error {
	errPress := in.kb.Press(false, key)
	errRelease := in.kb.Release(false, key)
	if errPress != nil {
		return errPress
	}
	return errRelease
}

// sysKeyboard builds a fresh key bonding per call. Bondings are cheap and
// holding one across calls leaks modifier state on some platforms.
type sysKeyboard struct{}

func (sysKeyboard) Press(ctrl bool, keys ...int) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard init: %w", err)
	}
	kb.SetKeys(keys...)
	kb.HasCTRL(ctrl)
	return kb.Press()
}

func (sysKeyboard) Release(ctrl bool, keys ...int) error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("keyboard init: %w", err)
	}
	kb.SetKeys(keys...)
	kb.HasCTRL(ctrl)
	return kb.Release()
}

type sysClipboard struct{}

func (sysClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
