package gpu

import (
	"context"
	"fmt"
	"sync"
)

// Thread runs functions on the goroutine that calls Serve. Binaries that
// render off the main goroutine lock the main OS thread in init and serve
// from main, since GLFW on macOS only works on the process's first thread.
type Thread struct {
	calls chan func()
	done  chan struct{}
	once  sync.Once
}

// NewThread creates a thread with no server yet; Call blocks until Serve runs.
func NewThread() *Thread {
	return &Thread{calls: make(chan func()), done: make(chan struct{})}
}

// Serve runs queued calls one at a time until ctx is done. A call already
// running is finished first. Calls made after Serve returns fail.
func (t *Thread) Serve(ctx context.Context) {
	defer t.once.Do(func() { close(t.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-t.calls:
			fn()
		}
	}
}

// Call runs fn on the serving goroutine and waits for it to return.
func (t *Thread) Call(fn func()) error {
	finished := make(chan struct{})
	select {
	case t.calls <- func() {
		defer close(finished)
		fn()
	}:
	case <-t.done:
		return fmt.Errorf("%w: gpu thread stopped", ErrUnavailable)
	}
	<-finished
	return nil
}
