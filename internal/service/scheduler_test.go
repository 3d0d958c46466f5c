package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (r *recordingTarget) CleanupOldRecords(retentionDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, retentionDays)
	return r.err
}

func (r *recordingTarget) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSchedulerRunsAllTargetsOnStart(t *testing.T) {
	first := &recordingTarget{}
	second := &recordingTarget{}
	s := NewScheduler([]CleanupTarget{first, second}, 30, 1, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return first.callCount() == 1 && second.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	first.mu.Lock()
	assert.Equal(t, []int{30}, first.calls)
	first.mu.Unlock()

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerFailingTargetDoesNotBlockOthers(t *testing.T) {
	failing := &recordingTarget{err: assert.AnError}
	healthy := &recordingTarget{}
	s := NewScheduler([]CleanupTarget{failing, healthy}, 7, 1, testLogger())

	s.runCleanup()
	assert.Equal(t, 1, failing.callCount())
	assert.Equal(t, 1, healthy.callCount())
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(nil, 0, 0, testLogger())
	assert.Positive(t, s.retentionDays)
	assert.Positive(t, s.intervalHours)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	target := &recordingTarget{}
	s := NewScheduler([]CleanupTarget{target}, 7, 1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return target.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestCleanupFuncAdapter(t *testing.T) {
	var got int
	fn := CleanupFunc(func(days int) error {
		got = days
		return nil
	})
	require.NoError(t, fn.CleanupOldRecords(14))
	assert.Equal(t, 14, got)
}
