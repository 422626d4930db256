package inject

import (
	"errors"
	"testing"

	"github.com/micmonay/keybd_event"
)

type keyEvent struct {
	kind string // press or release
	ctrl bool
	key  int
}

type fakeKeyboard struct {
	events  []keyEvent
	failOn  int // 1-based event index that errors; 0 disables
	nextIdx int
}

func (f *fakeKeyboard) record(kind string, ctrl bool, keys []int) error {
	f.nextIdx++
	f.events = append(f.events, keyEvent{kind, ctrl, keys[0]})
	if f.failOn != 0 && f.nextIdx == f.failOn {
		return errors.New("synthetic key failure")
	}
	return nil
}

func (f *fakeKeyboard) Press(ctrl bool, keys ...int) error {
	return f.record("press", ctrl, keys)
}

func (f *fakeKeyboard) Release(ctrl bool, keys ...int) error {
	return f.record("release", ctrl, keys)
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) Write(text string) error {
	f.text = text
	return f.err
}

func newTestInjector(kb *fakeKeyboard, clip *fakeClipboard) *Injector {
	in := New(nil)
	in.kb = kb
	in.clip = clip
	in.SetDelay(0)
	return in
}

func TestInjectSequence(t *testing.T) {
	t.Parallel()

	kb := &fakeKeyboard{}
	clip := &fakeClipboard{}
	in := newTestInjector(kb, clip)

	if !in.Inject("  attack the D point  ") {
		t.Fatalf("inject failed")
	}
	if clip.text != "attack the D point" {
		t.Fatalf("clipboard got %q", clip.text)
	}

	want := []keyEvent{
		{"press", false, keybd_event.VK_ENTER},
		{"release", false, keybd_event.VK_ENTER},
		{"press", true, keybd_event.VK_V},
		{"release", true, keybd_event.VK_V},
		{"press", false, keybd_event.VK_ENTER},
		{"release", false, keybd_event.VK_ENTER},
	}
	if len(kb.events) != len(want) {
		t.Fatalf("got %d key events, want %d", len(kb.events), len(want))
	}
	for i, e := range want {
		if kb.events[i] != e {
			t.Fatalf("event %d = %+v, want %+v", i, kb.events[i], e)
		}
	}
}

func TestInjectEmptyTextFails(t *testing.T) {
	t.Parallel()

	kb := &fakeKeyboard{}
	in := newTestInjector(kb, &fakeClipboard{})

	if in.Inject("   ") {
		t.Fatalf("whitespace-only text must not inject")
	}
	if len(kb.events) != 0 {
		t.Fatalf("no key events expected, got %d", len(kb.events))
	}
}

func TestInjectReleasesCtrlAfterFailedPress(t *testing.T) {
	t.Parallel()

	// Event 3 is the ctrl+v press.
	kb := &fakeKeyboard{failOn: 3}
	in := newTestInjector(kb, &fakeClipboard{})

	if in.Inject("hello") {
		t.Fatalf("inject must report failure")
	}
	last := kb.events[len(kb.events)-1]
	if last.kind != "release" || !last.ctrl || last.key != keybd_event.VK_V {
		t.Fatalf("ctrl+v release must follow the failed press, got %+v", last)
	}
}

func TestInjectClipboardFailure(t *testing.T) {
	t.Parallel()

	kb := &fakeKeyboard{}
	in := newTestInjector(kb, &fakeClipboard{err: errors.New("no clipboard")})

	if in.Inject("hello") {
		t.Fatalf("clipboard failure must fail the injection")
	}
	// Chat box was opened but nothing should have been pasted or sent.
	if len(kb.events) != 2 {
		t.Fatalf("expected only the chat-open tap, got %d events", len(kb.events))
	}
}

func TestSetChatKey(t *testing.T) {
	t.Parallel()

	kb := &fakeKeyboard{}
	in := newTestInjector(kb, &fakeClipboard{})

	if err := in.SetChatKey("y"); err != nil {
		t.Fatalf("SetChatKey: %v", err)
	}
	in.Inject("on me")
	if kb.events[0].key != keybd_event.VK_Y {
		t.Fatalf("chat box must open with the configured key, got %d", kb.events[0].key)
	}

	if err := in.SetChatKey("f13"); err == nil {
		t.Fatalf("unknown chat key must be rejected")
	}
}
