package audio

import "testing"

func TestSessionStopOnZeroValue(t *testing.T) {
	t.Parallel()

	var s Session
	if got := s.Stop(); len(got) != 0 {
		t.Fatalf("zero-value session returned %d samples", len(got))
	}
}

func TestSessionBuffersWhileArmed(t *testing.T) {
	t.Parallel()

	s := &Session{armed: true}
	s.push([]float32{1, 2})
	s.push([]float32{3})

	got := s.Stop()
	want := []float32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestSessionIgnoresPushAfterStop(t *testing.T) {
	t.Parallel()

	s := &Session{armed: true}
	s.push([]float32{1})
	s.Stop()
	s.push([]float32{2})

	if got := s.Stop(); len(got) != 1 {
		t.Fatalf("push after stop must be dropped, got %d samples", len(got))
	}
}

func TestSessionDuration(t *testing.T) {
	t.Parallel()

	s := &Session{armed: true}
	s.push(make([]float32, captureRate/2))
	if d := s.Duration(); d != 0.5 {
		t.Fatalf("expected 0.5s, got %f", d)
	}
}

func TestSessionCopiesCallbackBuffer(t *testing.T) {
	t.Parallel()

	s := &Session{armed: true}
	buf := []float32{1, 1}
	s.push(buf)
	buf[0] = 9

	if got := s.Stop(); got[0] != 1 {
		t.Fatalf("session must copy the driver buffer, got %f", got[0])
	}
}
