package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context, at time.Time) error
}

// TaskFunc는 함수를 Task로 사용합니다
type TaskFunc func(ctx context.Context, at time.Time) error

// Execute는 f(ctx, at)를 호출합니다
func (f TaskFunc) Execute(ctx context.Context, at time.Time) error {
	return f(ctx, at)
}

// Scheduler는 interval 경계마다 작업을 실행하는 스케줄러입니다
type Scheduler struct {
	interval time.Duration
	task     Task
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// NextRun은 now 이후 첫 interval 경계를 반환합니다
func NextRun(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// Start는 ctx가 끝나거나 Stop이 호출될 때까지 작업을 실행합니다
func (s *Scheduler) Start(ctx context.Context) error {
	nextRun := NextRun(s.now(), s.interval)
	timer := time.NewTimer(nextRun.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			if err := s.task.Execute(ctx, nextRun); err != nil {
				log.Printf("작업 실행 실패: %v", err)
				// 에러가 발생해도 계속 실행
			}

			now := s.now()
			nextRun = NextRun(now, s.interval)
			timer.Reset(nextRun.Sub(now))
		}
	}
}

// Stop은 스케줄러를 중지합니다. 여러 번 호출해도 안전합니다
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
