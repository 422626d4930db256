package chat

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, pages map[int]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gamechat" {
			http.NotFound(w, r)
			return
		}
		lastID := r.URL.Query().Get("lastId")
		var id int
		fmt.Sscanf(lastID, "%d", &id)
		body, ok := pages[id]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collectListener(t *testing.T, srv *httptest.Server) (*Listener, *[]Message) {
	t.Helper()
	var got []Message
	l := NewListener(srv.URL, time.Second, func(m Message) {
		got = append(got, m)
	}, nil)
	return l, &got
}

func TestListenerDeliversNewMessages(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, map[int]string{
		0: `[{"id":1,"msg":"attack D","sender":"Ace","enemy":false,"mode":"team","time":1700000000},
		    {"id":2,"msg":"gg","sender":"Foe","enemy":true,"mode":"all","time":1700000001}]`,
		2: `[{"id":3,"msg":"on my way","sender":"Wing","enemy":false,"mode":"squad","time":1700000002}]`,
	})
	l, got := collectListener(t, srv)

	l.poll()
	l.poll()

	if len(*got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(*got))
	}
	m := (*got)[0]
	if m.Sender != "Ace" || m.Content != "attack D" || m.Channel != ChannelTeam {
		t.Fatalf("unexpected first message: %+v", m)
	}
	if !(*got)[1].Enemy {
		t.Fatalf("enemy flag must survive")
	}
	if (*got)[2].Channel != ChannelSquadron {
		t.Fatalf("squad mode must parse as squadron, got %v", (*got)[2].Channel)
	}
	if l.SeenCount() != 3 {
		t.Fatalf("seen count = %d, want 3", l.SeenCount())
	}
}

func TestListenerStripsColorTags(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, map[int]string{
		0: `[{"id":1,"msg":"<color=#7ff>[EXB]</color> need backup","sender":"Ace","mode":"team","time":0}]`,
	})
	l, got := collectListener(t, srv)
	l.poll()

	if len(*got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*got))
	}
	if (*got)[0].Content != "need backup" {
		t.Fatalf("content = %q", (*got)[0].Content)
	}
	if (*got)[0].Metadata != "[EXB]" {
		t.Fatalf("metadata = %q", (*got)[0].Metadata)
	}
}

func TestListenerSkipsOwnAndEmptyMessages(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, map[int]string{
		0: `[{"id":1,"msg":"my own words","sender":"MyName","mode":"team","time":0},
		    {"id":2,"msg":"<color=#7ff>[TAG]</color>","sender":"Ace","mode":"team","time":0},
		    {"id":3,"msg":"real message","sender":"Ace","mode":"team","time":0}]`,
	})
	l, got := collectListener(t, srv)
	l.SetOwnUsername("myname")
	l.poll()

	if len(*got) != 1 || (*got)[0].Content != "real message" {
		t.Fatalf("expected only the real message, got %+v", *got)
	}
	// Cursor still advances past skipped messages.
	l.poll()
	if len(*got) != 1 {
		t.Fatalf("skipped messages must not be re-fetched")
	}
}

func TestListenerClearHistory(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, map[int]string{
		0: `[{"id":1,"msg":"hello","sender":"Ace","mode":"all","time":0}]`,
	})
	l, got := collectListener(t, srv)

	l.poll()
	l.ClearHistory()
	l.poll()

	if len(*got) != 2 {
		t.Fatalf("expected a re-delivery after ClearHistory, got %d", len(*got))
	}
	if l.SeenCount() != 1 {
		t.Fatalf("seen count resets with history, got %d", l.SeenCount())
	}
}

func TestIsGameRunning(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, nil)
	l, _ := collectListener(t, srv)
	if !l.IsGameRunning() {
		t.Fatalf("server is up, expected true")
	}

	down := NewListener("http://127.0.0.1:1", time.Second, func(Message) {}, nil)
	if down.IsGameRunning() {
		t.Fatalf("expected false for unreachable endpoint")
	}
}
