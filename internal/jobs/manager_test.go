package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_RunsImmediatelyAndOnTicks(t *testing.T) {
	m := NewManager(context.Background())
	var runs int32
	m.Register(NewJob("refresh", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	m.Register(nil)
	assert.Equal(t, []string{"refresh"}, m.Jobs())

	m.Start()
	m.Start() // second start is ignored

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	m.Wait()

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestManager_FailingJobKeepsRunning(t *testing.T) {
	m := NewManager(context.Background())
	var runs int32
	m.Register(NewJob("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("remote down")
	}))
	m.Start()
	defer func() {
		m.Stop()
		m.Wait()
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_DelayFirstRun(t *testing.T) {
	m := NewManager(context.Background())
	m.DelayFirstRun()
	var runs int32
	m.Register(NewJob("checkpoint", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent)
	m.Register(NewJob("noop", time.Hour, func(ctx context.Context) error { return nil }))
	m.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not stop after parent cancel")
	}
}
