package gpu

import (
	"context"
	"errors"
	"testing"
)

func TestThreadRunsCallsInOrder(t *testing.T) {
	th := NewThread()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Serve(ctx)

	var got []int
	for i := 0; i < 3; i++ {
		if err := th.Call(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Call(%d) error = %v", i, err)
		}
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("calls ran as %v, want [0 1 2]", got)
	}
}

func TestThreadCallAfterStop(t *testing.T) {
	th := NewThread()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	th.Serve(ctx)

	ran := false
	err := th.Call(func() { ran = true })
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Call() error = %v, want ErrUnavailable", err)
	}
	if ran {
		t.Error("call ran after Serve returned")
	}
}

func TestThreadFinishesRunningCall(t *testing.T) {
	th := NewThread()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		th.Serve(ctx)
		close(served)
	}()

	finished := false
	err := th.Call(func() {
		cancel()
		finished = true
	})
	<-served
	if err != nil || !finished {
		t.Errorf("Call() = %v, finished = %v, want the running call to complete", err, finished)
	}
}
