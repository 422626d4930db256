package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestServerRoundTrip(t *testing.T) {
	t.Parallel()

	sock := filepath.Join(t.TempDir(), "ctl.sock")
	srv, err := StartServer(sock, func(m ControlMessage) string {
		return "ack " + m.Cmd + " " + m.Arg
	}, nil)
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := Send(ctx, sock, "say", "hello pilots")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if reply != "ack say hello pilots" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestSendToMissingDaemon(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := Send(ctx, filepath.Join(t.TempDir(), "none.sock"), "status", ""); err == nil {
		t.Fatalf("expected an error for a missing socket")
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	t.Parallel()

	sock := filepath.Join(t.TempDir(), "ctl.sock")
	first, err := StartServer(sock, func(ControlMessage) string { return "one" }, nil)
	if err != nil {
		t.Fatalf("first server: %v", err)
	}
	first.Close()

	second, err := StartServer(sock, func(ControlMessage) string { return "two" }, nil)
	if err != nil {
		t.Fatalf("second server must rebind: %v", err)
	}
	defer second.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := Send(ctx, sock, "status", "")
	if err != nil || reply != "two" {
		t.Fatalf("reply %q, err %v", reply, err)
	}
}
