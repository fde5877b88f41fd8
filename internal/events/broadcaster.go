// Package events fans out pipeline progress to any number of listeners.
package events

import (
	"context"
	"sync"
)

// Event is one progress update of a run.
type Event struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"` // audio, shader, render, encode, done, failed
	Attempt int    `json:"attempt,omitempty"`
	Done    int    `json:"done,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// Stages in the order a run reports them.
const (
	StageAudio  = "audio"
	StageShader = "shader"
	StageRender = "render"
	StageEncode = "encode"
	StageDone   = "done"
	StageFailed = "failed"
)

// Broadcaster fans out events from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives events from the broadcaster.
type Listener struct {
	C    chan Event
	done chan struct{}
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan Event, 64),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish delivers ev to every listener. Slow listeners miss events rather
// than blocking the run.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- ev:
		default:
		}
	}
}

// Run publishes everything read from source until it closes or ctx ends.
func (b *Broadcaster) Run(ctx context.Context, source <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-source:
			if !ok {
				return
			}
			b.Publish(ev)
		}
	}
}
