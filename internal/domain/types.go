package domain

// SignalType은 트레이딩 모델이 내는 진입 시그널 유형을 정의합니다
type SignalType int

const (
	NoSignal SignalType = iota
	Long                // 1번 종목 매수, 2번 종목 매도
	Short               // 1번 종목 매도, 2번 종목 매수
)

// String은 SignalType의 문자열 표현을 반환합니다
func (s SignalType) String() string {
	switch s {
	case NoSignal:
		return "NoSignal"
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "Unknown"
	}
}

// Position은 시그널에 대응하는 페어 포지션을 반환합니다
func (s SignalType) Position() PositionSide {
	switch s {
	case Long:
		return LongPosition
	case Short:
		return ShortPosition
	default:
		return FlatPosition
	}
}

// OrderSide는 주문 방향을 정의합니다
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite는 반대 주문 방향을 반환합니다
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign은 매수는 +1, 매도는 -1을 반환합니다
func (s OrderSide) Sign() int {
	if s == Buy {
		return 1
	}
	return -1
}

// PositionSide는 페어 포지션 방향을 정의합니다
type PositionSide string

const (
	FlatPosition  PositionSide = "FLAT"
	LongPosition  PositionSide = "LONG"  // 1번 매수 / 2번 공매도
	ShortPosition PositionSide = "SHORT" // 1번 공매도 / 2번 매수
)

// Signal은 포지션 방향에 대응하는 진입 시그널을 반환합니다
func (p PositionSide) Signal() SignalType {
	switch p {
	case LongPosition:
		return Long
	case ShortPosition:
		return Short
	default:
		return NoSignal
	}
}

// LegSides는 해당 방향으로 진입할 때 각 레그의 주문 방향을 반환합니다
func (p PositionSide) LegSides() (OrderSide, OrderSide) {
	if p == ShortPosition {
		return Sell, Buy
	}
	return Buy, Sell
}

// DerivePosition은 두 레그의 확정 수량으로 페어 포지션을 계산합니다.
// 한쪽 레그만 있으면 FlatPosition과 oneLeg=true를 반환합니다.
func DerivePosition(qty1, qty2 int) (side PositionSide, oneLeg bool) {
	switch {
	case qty1 == 0 && qty2 == 0:
		return FlatPosition, false
	case qty1 == 0 || qty2 == 0:
		return FlatPosition, true
	case qty1 > 0:
		return LongPosition, false
	default:
		return ShortPosition, false
	}
}

// OrderType은 주문 유형을 정의합니다
type OrderType string

const (
	Market OrderType = "MARKET"
)

// TradingStatus는 사용자가 설정한 페어 거래 상태입니다
type TradingStatus string

const (
	TradingInactive TradingStatus = "inactive"
	TradingMaintain TradingStatus = "maintain" // 기존 포지션 청산만 허용
	TradingActive   TradingStatus = "active"
)

// CoreStatus는 엔진이 보고하는 현재 상태입니다
type CoreStatus string

const (
	StatusPending      CoreStatus = "pending"
	StatusNotReady     CoreStatus = "not-ready"
	StatusNotConnected CoreStatus = "not-connected"
	StatusInactive     CoreStatus = "inactive"
	StatusMaintainOnly CoreStatus = "maintain-only"
	StatusBlocked      CoreStatus = "blocked"
	StatusTransient    CoreStatus = "transient"
	StatusOneLeg       CoreStatus = "one-leg"
	StatusExchangeDead CoreStatus = "exchange-dead"
	StatusSuspicious   CoreStatus = "suspicious market data"
	StatusDegraded     CoreStatus = "degraded"

	StatusEntryTradingHours    CoreStatus = "entry:trading-hours"
	StatusEntryHistory         CoreStatus = "entry:historical-data"
	StatusEntryMinPrice        CoreStatus = "entry:min-price"
	StatusEntryProfitPotential CoreStatus = "entry:profit-potential"
	StatusEntrySignal          CoreStatus = "entry:signal"
	StatusEntryShortable       CoreStatus = "entry:shortable"
	StatusEntrySlot            CoreStatus = "entry:slot"
	StatusEntryReversal        CoreStatus = "entry:reversal"
	StatusEntryPDT             CoreStatus = "entry:pattern-day-trade"
	StatusEntryCooldown        CoreStatus = "entry:cooldown"

	StatusExitTradingHours CoreStatus = "exit:trading-hours"
	StatusExitHistory      CoreStatus = "exit:historical-data"
	StatusExitSignal       CoreStatus = "exit:signal"
	StatusExitMinPnL       CoreStatus = "exit:min-pnl"
	StatusExitPDT          CoreStatus = "exit:pattern-day-trade"
)
