package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// record is one entry of the gamechat endpoint's JSON response.
type record struct {
	ID     int    `json:"id"`
	Msg    string `json:"msg"`
	Sender string `json:"sender"`
	Enemy  bool   `json:"enemy"`
	Mode   string `json:"mode"`
	Time   int64  `json:"time"`
}

// Listener polls the game client's local web API for new chat messages and
// hands them to onMessage in arrival order. Messages from the player's own
// username are filtered out so the player is not read their own transcripts.
type Listener struct {
	baseURL  string
	client   *http.Client
	interval time.Duration
	log      *slog.Logger

	onMessage func(Message)

	mu      sync.Mutex
	lastID  int
	seen    int
	ownName string
}

func NewListener(baseURL string, pollInterval time.Duration, onMessage func(Message), log *slog.Logger) *Listener {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 2 * time.Second},
		interval:  pollInterval,
		onMessage: onMessage,
		log:       log,
	}
}

// SetOwnUsername sets the name whose messages are skipped, matched
// case-insensitively.
func (l *Listener) SetOwnUsername(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ownName = name
}

// ClearHistory forgets the message cursor so the next poll starts from the
// beginning of the match's chat log.
func (l *Listener) ClearHistory() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastID = 0
	l.seen = 0
}

// SeenCount returns how many messages have been delivered since the last
// ClearHistory.
func (l *Listener) SeenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen
}

// IsGameRunning probes whether the game client's web API answers.
func (l *Listener) IsGameRunning() bool {
	resp, err := l.client.Get(l.baseURL + "/gamechat?lastId=0")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Run polls until ctx is cancelled. Fetch failures are quiet: the game not
// running is the normal state, not an error.
func (l *Listener) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.poll()
		}
	}
}

func (l *Listener) poll() {
	msgs, err := l.fetch()
	if err != nil {
		l.log.Debug("gamechat poll failed", "err", err)
		return
	}
	for _, m := range msgs {
		l.onMessage(m)
	}
}

// fetch pulls every message newer than the cursor and advances it.
func (l *Listener) fetch() ([]Message, error) {
	l.mu.Lock()
	lastID := l.lastID
	own := l.ownName
	l.mu.Unlock()

	url := fmt.Sprintf("%s/gamechat?lastId=%d", l.baseURL, lastID)
	resp, err := l.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamechat returned %s", resp.Status)
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode gamechat response: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var out []Message
	maxID := lastID
	for _, r := range records {
		if r.ID > maxID {
			maxID = r.ID
		}
		content, meta := stripMarkup(r.Msg)
		if content == "" {
			continue
		}
		if own != "" && strings.EqualFold(r.Sender, own) {
			continue
		}
		out = append(out, Message{
			ID:       r.ID,
			Time:     time.Unix(r.Time, 0),
			Channel:  ParseChannel(r.Mode),
			Sender:   r.Sender,
			Content:  content,
			Enemy:    r.Enemy,
			Metadata: meta,
		})
	}

	l.mu.Lock()
	l.lastID = maxID
	l.seen += len(out)
	l.mu.Unlock()
	return out, nil
}
