// Package ipc exposes a unix-socket control channel so a CLI can poke the
// running daemon: simulate PTT edges, speak text, query status.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/wtvc.sock"

// ControlMessage is one request over the control socket.
type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// Handler processes one control message and returns the reply line.
type Handler func(ControlMessage) string

// Server accepts control connections, one JSON message per line, one reply
// line back.
type Server struct {
	path string
	ln   net.Listener
	log  *slog.Logger
}

func StartServer(path string, handler Handler, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	// A stale socket from a crashed run blocks the bind.
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on control socket: %w", err)
	}
	s := &Server{path: path, ln: ln, log: log}
	go s.accept(handler)
	return s, nil
}

func (s *Server) accept(handler Handler) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn, handler)
	}
}

func (s *Server) serve(conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var msg ControlMessage
	if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
		fmt.Fprintln(conn, "error: bad request")
		return
	}
	s.log.Debug("control command", "cmd", msg.Cmd, "arg", msg.Arg)
	fmt.Fprintln(conn, handler(msg))
}

// Close stops accepting and removes the socket file.
func (s *Server) Close() {
	s.ln.Close()
	os.Remove(s.path)
}

// Send delivers one command to a running daemon and returns its reply.
func Send(ctx context.Context, path, cmd, arg string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return "", fmt.Errorf("daemon not reachable at %s: %w", path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(ControlMessage{Cmd: cmd, Arg: arg})
	if err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return "", err
	}

	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("empty reply from daemon")
	}
	return sc.Text(), nil
}
