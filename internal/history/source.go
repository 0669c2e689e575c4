package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/trading"
)

var ErrQueueFull = errors.New("히스토리 요청 대기열이 가득 찼습니다")

const defaultQueueSize = 256

// RetryConfig는 재시도 설정을 정의합니다
type RetryConfig struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
}

// DefaultRetryConfig는 기본 재시도 설정을 반환합니다
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
	}
}

// Publisher는 결과 메시지를 페어 코어에 전달합니다
type Publisher interface {
	Publish(msg trading.Message) int
}

// Source는 일봉 요청을 받아 백그라운드 워커에서 처리합니다.
// 결과는 요청 ID가 붙은 HistoryReadyMsg/HistoryFailedMsg로 발행됩니다.
type Source struct {
	fetcher   Fetcher
	publisher Publisher
	retry     RetryConfig
	requests  chan domain.HistoryRequest
	nextID    atomic.Int64
}

// SourceOption은 Source 옵션을 정의합니다
type SourceOption func(*Source)

// WithRetryConfig는 재시도 설정을 지정합니다
func WithRetryConfig(config RetryConfig) SourceOption {
	return func(s *Source) {
		s.retry = config
	}
}

// WithQueueSize는 요청 대기열 크기를 지정합니다
func WithQueueSize(size int) SourceOption {
	return func(s *Source) {
		s.requests = make(chan domain.HistoryRequest, size)
	}
}

// NewSource는 새 히스토리 소스를 생성합니다
func NewSource(fetcher Fetcher, publisher Publisher, opts ...SourceOption) *Source {
	s := &Source{
		fetcher:   fetcher,
		publisher: publisher,
		retry:     DefaultRetryConfig(),
		requests:  make(chan domain.HistoryRequest, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllocRequestID는 새 요청 ID를 할당합니다
func (s *Source) AllocRequestID() int64 {
	return s.nextID.Add(1)
}

// RequestData는 요청을 대기열에 넣습니다. 블록하지 않습니다
func (s *Source) RequestData(ctx context.Context, req domain.HistoryRequest) error {
	if req.ID == 0 || req.Symbol1 == "" || req.Symbol2 == "" {
		return fmt.Errorf("%w: %+v", ErrInvalidInput, req)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run은 ctx가 끝날 때까지 요청을 처리합니다
func (s *Source) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			res := s.Fetch(ctx, req)
			if ctx.Err() != nil {
				return
			}
			if res.Err != nil {
				log.Printf("[%s] 히스토리 요청 %d 실패: %v", req.PairID, req.ID, res.Err)
			}
			s.publisher.Publish(trading.HistoryMessage(res))
		}
	}
}

// Fetch는 두 레그의 일봉을 가져와 날짜를 맞춥니다
func (s *Source) Fetch(ctx context.Context, req domain.HistoryRequest) domain.HistoryResult {
	res := domain.HistoryResult{RequestID: req.ID}

	var s1, s2 domain.PriceSeries
	err := s.withRetry(ctx, fmt.Sprintf("%s 일봉 조회", req.Symbol1), func() error {
		var err error
		s1, err = s.fetcher.FetchDaily(ctx, req.Symbol1, req.Days)
		return err
	})
	if err == nil {
		err = s.withRetry(ctx, fmt.Sprintf("%s 일봉 조회", req.Symbol2), func() error {
			var err error
			s2, err = s.fetcher.FetchDaily(ctx, req.Symbol2, req.Days)
			return err
		})
	}
	if err != nil {
		res.Err = err
		return res
	}

	res.Series1, res.Series2 = Align(s1, s2)
	if len(res.Series1) == 0 {
		res.Err = fmt.Errorf("%w: %s/%s 공통 날짜 없음", ErrNoData, req.Symbol1, req.Symbol2)
	}
	return res
}

// IsRetryableError는 다시 시도할 만한 오류인지 확인합니다
func IsRetryableError(err error) bool {
	return !errors.Is(err, ErrNoData) && !errors.Is(err, ErrInvalidInput) && !errors.Is(err, ErrMalformed) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (s *Source) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := s.retry.BaseDelay

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}
		if attempt == s.retry.MaxRetries {
			return fmt.Errorf("%s 최대 재시도 횟수 초과: %w", operation, lastErr)
		}

		log.Printf("%s 실패 (attempt %d/%d): %v", operation, attempt+1, s.retry.MaxRetries, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * s.retry.Factor)
			if delay > s.retry.MaxDelay {
				delay = s.retry.MaxDelay
			}
		}
	}
	return lastErr
}
