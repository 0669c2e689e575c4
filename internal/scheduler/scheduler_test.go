package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	base := time.Date(2024, 3, 5, 15, 4, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"분 경계 정각", base, base.Add(time.Minute)},
		{"분 중간", base.Add(30 * time.Second), base.Add(time.Minute)},
		{"경계 직전", base.Add(59*time.Second + 999*time.Millisecond), base.Add(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRun(tt.now, time.Minute))
		})
	}
}

func TestSchedulerRuns(t *testing.T) {
	var runs atomic.Int32
	var last atomic.Int64
	s := NewScheduler(20*time.Millisecond, TaskFunc(func(ctx context.Context, at time.Time) error {
		runs.Add(1)
		last.Store(at.UnixNano())
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, last.Load()%int64(20*time.Millisecond), "경계 시각으로 실행")

	s.Stop()
	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("스케줄러가 멈추지 않았습니다")
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(time.Hour, TaskFunc(func(context.Context, time.Time) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("스케줄러가 멈추지 않았습니다")
	}
}
