package backtest

import (
	"errors"
	"fmt"
	"log"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
)

var ErrInsufficientData = errors.New("백테스트 데이터가 부족합니다")

// Config는 백테스트 거래 규칙입니다
type Config struct {
	InitialBalance float64 // 초기 잔고
	Budget         float64 // 진입마다 쓰는 증거금 예산. 0이면 초기 잔고
	Margin1        float64 // 1번 레그 증거금률 (%)
	Margin2        float64
	FeeRate        float64 // 체결 금액 대비 수수료율
	MaxDays        int     // 최대 보유 거래일. 0이면 제한 없음
}

// ConfigFromPair는 페어 설정에서 백테스트 규칙을 만듭니다
func ConfigFromPair(pair domain.PairConfig, balance, feeRate float64) Config {
	cfg := Config{
		InitialBalance: balance,
		Margin1:        pair.Margin1,
		Margin2:        pair.Margin2,
		FeeRate:        feeRate,
	}
	if pair.MaxDaysEnabled {
		cfg.MaxDays = pair.MaxDays
	}
	return cfg
}

// Engine은 일봉 종가로 페어 모델을 재생하는 백테스트 엔진입니다.
// 매 거래일 모델은 전날까지의 종가로 갱신되고 그날 종가로 진입/청산을 판단합니다.
type Engine struct {
	PairID  string
	Model   strategy.Model
	Series1 domain.PriceSeries
	Series2 domain.PriceSeries
	Config  Config
}

// NewEngine은 새로운 백테스트 엔진을 생성합니다. 두 시계열은 날짜가 정렬되어 있어야 합니다
func NewEngine(pairID string, model strategy.Model, s1, s2 domain.PriceSeries, cfg Config) (*Engine, error) {
	if len(s1) != len(s2) {
		return nil, fmt.Errorf("%w: 레그 길이가 다릅니다 (%d != %d)", ErrInsufficientData, len(s1), len(s2))
	}
	if len(s1) <= model.Lookback() {
		return nil, fmt.Errorf("%w: 필요 %d, 현재 %d", ErrInsufficientData, model.Lookback()+1, len(s1))
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("초기 잔고가 0 이하입니다: %.2f", cfg.InitialBalance)
	}
	if cfg.Budget <= 0 {
		cfg.Budget = cfg.InitialBalance
	}
	return &Engine{PairID: pairID, Model: model, Series1: s1, Series2: s2, Config: cfg}, nil
}

// Run은 백테스트를 실행합니다
func (e *Engine) Run() (*Result, error) {
	account := &Account{InitialBalance: e.Config.InitialBalance, Balance: e.Config.InitialBalance}
	closes1, closes2 := e.Series1.Closes(), e.Series2.Closes()

	log.Printf("백테스트 시작: 페어=%s, 모델=%s, 거래일 수=%d, 웜업 기간=%d",
		e.PairID, e.Model.Name(), len(closes1), e.Model.Lookback())

	var (
		trades []Trade
		pos    *position
	)
	for i := e.Model.Lookback(); i < len(closes1); i++ {
		bar1, bar2 := e.Series1[i], e.Series2[i]

		// 그날 종가를 모르는 상태로 모델 갱신 (미래 정보 누수 방지)
		if err := e.Model.SetPrices(closes1[:i], closes2[:i]); err != nil {
			log.Printf("모델 갱신 실패 (%s): %v", bar1.DateKey(), err)
			account.record(bar1, pos, bar1.Close, bar2.Close)
			continue
		}
		q := quotes(bar1.Close, bar2.Close)

		exited := false
		if pos != nil {
			reason := NoExit
			switch {
			case e.Model.ExitLogic(q, pos.side):
				reason = SignalExit
			case e.Config.MaxDays > 0 && i-pos.entryIndex >= e.Config.MaxDays:
				reason = MaxDaysExit
			}
			if reason != NoExit {
				trades = append(trades, e.closePosition(account, pos, i, reason))
				pos = nil
				exited = true
			}
		}

		if pos == nil && !exited {
			if sig := e.Model.EntryLogic(q); sig != domain.NoSignal {
				pos = e.openPosition(sig, i, q)
			}
		}

		account.record(bar1, pos, bar1.Close, bar2.Close)
	}

	if pos != nil {
		trades = append(trades, e.closePosition(account, pos, len(closes1)-1, EndOfBacktest))
		last := len(closes1) - 1
		account.record(e.Series1[last], nil, closes1[last], closes2[last])
	}

	result := CalculateStats(trades, account)
	result.PairID = e.PairID

	log.Printf("백테스트 완료: 총 거래=%d, 승률=%.2f%%, 누적 수익률=%.2f%%, 최대 낙폭=%.2f%%",
		result.TotalTrades,
		result.WinRate,
		result.CumulativeReturn,
		result.MaxDrawdown)

	return result, nil
}

func (e *Engine) openPosition(sig domain.SignalType, i int, q strategy.Quotes) *position {
	qty1, qty2 := e.Model.Quantities(e.Config.Budget, e.Config.Margin1, e.Config.Margin2, q, sig)
	if qty1 <= 0 || qty2 <= 0 {
		log.Printf("포지션 진입 건너뜀 (%s): 수량이 0입니다", e.Series1[i].DateKey())
		return nil
	}

	p1, p2 := e.Series1[i].Close, e.Series2[i].Close
	pos := &position{
		side:        sig.Position(),
		entryIndex:  i,
		entryTime:   e.Series1[i].Date,
		qty1:        qty1,
		qty2:        qty2,
		price1:      p1,
		price2:      p2,
		entryCharge: e.commission(qty1, p1, qty2, p2),
	}
	log.Printf("포지션 진입: %s %s %d@%.2f / %d@%.2f (%s)",
		e.PairID, pos.side, qty1, p1, qty2, p2, e.Series1[i].DateKey())
	return pos
}

func (e *Engine) closePosition(account *Account, pos *position, i int, reason ExitReason) Trade {
	p1, p2 := e.Series1[i].Close, e.Series2[i].Close
	commission := pos.entryCharge + e.commission(pos.qty1, p1, pos.qty2, p2)
	pnl := pos.grossPnL(p1, p2) - commission
	account.Balance += pnl

	trade := Trade{
		Side:        pos.side,
		EntryTime:   pos.entryTime,
		ExitTime:    e.Series1[i].Date,
		Qty1:        pos.qty1,
		Qty2:        pos.qty2,
		EntryPrice1: pos.price1,
		EntryPrice2: pos.price2,
		ExitPrice1:  p1,
		ExitPrice2:  p2,
		HoldingDays: i - pos.entryIndex,
		Commission:  commission,
		PnL:         pnl,
		ProfitPct:   pnl / e.Config.Budget * 100,
		ExitReason:  reason,
	}
	log.Printf("포지션 청산: %s %s, 수익: %.2f%%, 이유: %s (%s)",
		e.PairID, pos.side, trade.ProfitPct, reason, e.Series1[i].DateKey())
	return trade
}

func (e *Engine) commission(qty1 int, p1 float64, qty2 int, p2 float64) float64 {
	return (float64(qty1)*p1 + float64(qty2)*p2) * e.Config.FeeRate
}

// grossPnL은 수수료 전 평가 손익입니다. 롱은 1번 매수/2번 매도입니다
func (p *position) grossPnL(p1, p2 float64) float64 {
	dir := 1.0
	if p.side == domain.ShortPosition {
		dir = -1.0
	}
	return dir*(p1-p.price1)*float64(p.qty1) - dir*(p2-p.price2)*float64(p.qty2)
}

// record는 그날 종가 기준 자산을 기록합니다
func (a *Account) record(bar domain.DailyBar, pos *position, p1, p2 float64) {
	equity := a.Balance
	if pos != nil {
		equity += pos.grossPnL(p1, p2) - pos.entryCharge
	}
	a.EquityHistory = append(a.EquityHistory, EquityPoint{Timestamp: bar.Date, Equity: equity})
}

func quotes(p1, p2 float64) strategy.Quotes {
	return strategy.Quotes{
		Leg1: domain.Rates{Bid: p1, Ask: p1, Last: p1},
		Leg2: domain.Rates{Bid: p2, Ask: p2, Last: p2},
	}
}
