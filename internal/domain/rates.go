package domain

import (
	"sync"
	"time"
)

// Rates는 한 종목의 호가 스냅샷 값입니다
type Rates struct {
	Bid      float64
	Ask      float64
	Last     float64
	BidTime  time.Time // 매수호가가 마지막으로 바뀐 시각
	AskTime  time.Time // 매도호가가 마지막으로 바뀐 시각
	LastTime time.Time
}

// Mid는 중간가를 반환합니다. 호가가 없으면 최종 체결가를 사용합니다
func (r Rates) Mid() float64 {
	if r.Bid > 0 && r.Ask > 0 {
		return (r.Bid + r.Ask) / 2
	}
	return r.Last
}

// IsValid는 스냅샷이 모델 입력으로 쓸 수 있는지 확인합니다.
// 어느 한쪽 호가라도 종목 시간대 기준 오늘 0시 이전에 마지막으로 바뀌었거나
// 최소 가격 미만이면 stale로 판단합니다.
func (r Rates) IsValid(now time.Time, loc *time.Location, minPrice float64) bool {
	if r.Bid <= 0 || r.Ask <= 0 || r.Bid < minPrice || r.Ask < minPrice {
		return false
	}
	startOfDay := StartOfDay(now, loc)
	if r.BidTime.Before(startOfDay) || r.AskTime.Before(startOfDay) {
		return false
	}
	return true
}

// MarketRates는 한 종목의 실시간 호가를 보관합니다.
// 쓰기는 페어 워커에서만 일어나고 읽기는 다른 곳(화면 표시 등)에서도 가능합니다.
type MarketRates struct {
	Symbol string

	mu    sync.RWMutex
	rates Rates
}

// NewMarketRates는 새 호가 스냅샷을 생성합니다
func NewMarketRates(symbol string) *MarketRates {
	return &MarketRates{Symbol: symbol}
}

// SetBid는 매수호가를 갱신합니다. 값이 바뀐 경우에만 변경 시각을 기록합니다
func (m *MarketRates) SetBid(price float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if price != m.rates.Bid || m.rates.BidTime.IsZero() {
		m.rates.BidTime = at
	}
	m.rates.Bid = price
}

// SetAsk는 매도호가를 갱신합니다
func (m *MarketRates) SetAsk(price float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if price != m.rates.Ask || m.rates.AskTime.IsZero() {
		m.rates.AskTime = at
	}
	m.rates.Ask = price
}

// SetLast는 최종 체결가를 갱신합니다
func (m *MarketRates) SetLast(price float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates.Last = price
	m.rates.LastTime = at
}

// Rates는 현재 값의 복사본을 반환합니다
func (m *MarketRates) Rates() Rates {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rates
}

// Reset은 스냅샷을 비웁니다
func (m *MarketRates) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = Rates{}
}

// StartOfDay는 loc 시간대 기준 해당 날짜의 0시를 반환합니다
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameDay는 두 시각이 loc 기준 같은 날짜인지 확인합니다
func SameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
