package app

import (
	"context"
	"time"
)

// Loop is the orchestrator's home execution context: a single goroutine
// draining a FIFO of closures. Joystick edges, worker completions and timers
// all enter through Post, so orchestrator state has exactly one writer.
type Loop struct {
	tasks chan func()
}

func NewLoop() *Loop {
	return &Loop{tasks: make(chan func(), 256)}
}

// Post enqueues fn for execution on the loop. Closures run in the order
// they were posted.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// After runs fn on the loop once d has elapsed. The returned stop function
// reports whether the callback was prevented from being scheduled.
func (l *Loop) After(d time.Duration, fn func()) (stop func() bool) {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return t.Stop
}

// Run drains the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}
