// Package app wires a meeting client together: one event loop, the session
// orchestrator and the pipeline components hanging off it.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/linzo/meet/internal/core"
)

// Loop is the client's single cooperative event loop. Every network callback
// and timer is dispatched here, so handlers never run in parallel and shared
// session/caption state needs no locking.
type Loop struct {
	events chan func()
	done   chan struct{}

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
}

func NewLoop() *Loop {
	return &Loop{
		events: make(chan func(), 256),
		done:   make(chan struct{}),
	}
}

// Run drains events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			close(l.done)
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Done is closed when the loop has stopped. Queued events that never ran are
// discarded at that point.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Dispatch queues fn onto the loop. Safe from any goroutine; events posted
// after shutdown are discarded.
func (l *Loop) Dispatch(fn func()) {
	l.TryDispatch(fn)
}

// TryDispatch queues fn and reports whether it was accepted. A false return
// means the loop has stopped or the pre-start queue is full; fn will never
// run.
func (l *Loop) TryDispatch(fn func()) bool {
	l.mu.Lock()
	ctx := l.ctx
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return false
	}
	if ctx == nil {
		// Loop not running yet; queue while there is room.
		select {
		case l.events <- fn:
			return true
		default:
			return false
		}
	}
	select {
	case l.events <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

type timerHandle struct {
	t *time.Timer
}

func (h *timerHandle) Stop() { h.t.Stop() }

// After arms fn to run on the loop after d.
func (l *Loop) After(d time.Duration, fn func()) core.TimerHandle {
	t := time.AfterFunc(d, func() { l.Dispatch(fn) })
	return &timerHandle{t: t}
}

type tickerHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *tickerHandle) Stop() { h.once.Do(func() { close(h.stop) }) }

// Every arms fn to run on the loop every d until stopped.
func (l *Loop) Every(d time.Duration, fn func()) core.TimerHandle {
	h := &tickerHandle{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				l.Dispatch(fn)
			}
		}
	}()
	return h
}

var _ core.Scheduler = (*Loop)(nil)
