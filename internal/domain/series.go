package domain

import (
	"fmt"
	"time"
)

// DailyBar는 하루 단위 종가 데이터를 표현합니다
type DailyBar struct {
	Date  time.Time // 거래일 (시간 부분은 무시)
	Close float64   // 종가
}

// PriceSeries는 오래된 순서로 정렬된 일봉 종가 목록입니다
type PriceSeries []DailyBar

// Last는 가장 최근 데이터를 반환합니다
func (ps PriceSeries) Last() (DailyBar, bool) {
	if len(ps) == 0 {
		return DailyBar{}, false
	}
	return ps[len(ps)-1], true
}

// Closes는 종가만 추출한 슬라이스를 반환합니다
func (ps PriceSeries) Closes() []float64 {
	closes := make([]float64, len(ps))
	for i, bar := range ps {
		closes[i] = bar.Close
	}
	return closes
}

// Tail은 마지막 n개 데이터를 반환합니다
func (ps PriceSeries) Tail(n int) PriceSeries {
	if n >= len(ps) || n < 0 {
		return ps
	}
	return ps[len(ps)-n:]
}

// DateKey는 날짜 비교용 키(YYYY-MM-DD)를 반환합니다
func (b DailyBar) DateKey() string {
	return b.Date.Format("2006-01-02")
}

// SeriesError는 두 레그 히스토리 검증 실패 사유입니다
type SeriesError struct {
	Reason string
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("히스토리 데이터 검증 실패: %s", e.Reason)
}

// ValidatePairSeries는 두 레그의 일봉 데이터가 모델 입력으로 쓸 수 있는지 검증합니다.
// 길이가 같고, 비어 있지 않고, 마지막 날짜가 같으며, 마지막 날짜가 maxAgeDays 이내여야 합니다.
func ValidatePairSeries(s1, s2 PriceSeries, now time.Time, maxAgeDays int) error {
	if len(s1) == 0 || len(s2) == 0 {
		return &SeriesError{Reason: "데이터가 비어있습니다"}
	}
	if len(s1) != len(s2) {
		return &SeriesError{Reason: fmt.Sprintf("길이가 다릅니다 (%d != %d)", len(s1), len(s2))}
	}
	last1, _ := s1.Last()
	last2, _ := s2.Last()
	if last1.DateKey() != last2.DateKey() {
		return &SeriesError{Reason: fmt.Sprintf("마지막 날짜가 다릅니다 (%s != %s)", last1.DateKey(), last2.DateKey())}
	}
	age := now.Sub(last1.Date)
	if age > time.Duration(maxAgeDays)*24*time.Hour {
		return &SeriesError{Reason: fmt.Sprintf("마지막 데이터가 오래되었습니다 (%s)", last1.DateKey())}
	}
	return nil
}

// HistoryRequest는 두 레그의 일봉 데이터 요청입니다
type HistoryRequest struct {
	ID      int64
	PairID  string
	Symbol1 string
	Symbol2 string
	Days    int
}

// HistoryResult는 일봉 데이터 요청 결과입니다. Err가 nil이 아니면 실패입니다
type HistoryResult struct {
	RequestID int64
	Series1   PriceSeries
	Series2   PriceSeries
	Err       error
}
