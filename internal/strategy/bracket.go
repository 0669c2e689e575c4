package strategy

import (
	"math"

	"github.com/assist-by/pairs/internal/domain"
)

// EntryPrices는 진입 방향 기준 최악 체결 가격(매수는 ask, 매도는 bid)을 반환합니다
func EntryPrices(q Quotes, sig domain.SignalType) (p1, p2 float64) {
	switch sig {
	case domain.Long:
		return q.Leg1.Ask, q.Leg2.Bid
	case domain.Short:
		return q.Leg1.Bid, q.Leg2.Ask
	default:
		return q.Leg1.Mid(), q.Leg2.Mid()
	}
}

// RatioBracket은 방향별 보수적 가격비(1번/2번)를 계산합니다
func RatioBracket(q Quotes, sig domain.SignalType) float64 {
	p1, p2 := EntryPrices(q, sig)
	if p2 <= 0 {
		return math.NaN()
	}
	return p1 / p2
}

// SpreadBracket은 방향별 보수적 스프레드 p1 - intercept - slope*p2를 계산합니다.
// 롱은 스프레드를 사는 쪽이므로 가장 높은 값, 숏은 가장 낮은 값이 나오는 호가를 씁니다.
func SpreadBracket(q Quotes, sig domain.SignalType, intercept, slope float64) float64 {
	switch sig {
	case domain.Long:
		p2 := q.Leg2.Bid
		if slope < 0 {
			p2 = q.Leg2.Ask
		}
		return q.Leg1.Ask - intercept - slope*p2
	case domain.Short:
		p2 := q.Leg2.Ask
		if slope < 0 {
			p2 = q.Leg2.Bid
		}
		return q.Leg1.Bid - intercept - slope*p2
	default:
		return q.Leg1.Mid() - intercept - slope*q.Leg2.Mid()
	}
}

// ExitSignal은 포지션을 청산할 때 사용하는 호가 방향을 반환합니다.
// 롱 청산은 1번 매도/2번 매수이므로 숏 진입과 같은 호가를 씁니다.
func ExitSignal(pos domain.PositionSide) domain.SignalType {
	switch pos {
	case domain.LongPosition:
		return domain.Short
	case domain.ShortPosition:
		return domain.Long
	default:
		return domain.NoSignal
	}
}

// ModeSignal은 ZMode에 대응하는 호가 방향을 반환합니다
func ModeSignal(mode ZMode) domain.SignalType {
	switch mode {
	case ZLong:
		return domain.Long
	case ZShort:
		return domain.Short
	default:
		return domain.NoSignal
	}
}

// DisplayZScore는 두 방향 z-score의 부호가 같으면 절댓값이 작은 쪽을,
// 다르면 중간가 기준 값을 반환합니다
func DisplayZScore(zLong, zShort, zMid float64) float64 {
	if math.IsNaN(zLong) || math.IsNaN(zShort) {
		return zMid
	}
	if (zLong > 0) != (zShort > 0) || zLong == 0 || zShort == 0 {
		return zMid
	}
	if math.Abs(zLong) < math.Abs(zShort) {
		return zLong
	}
	return zShort
}

// ReversionPnL은 두 레그 가격이 move1, move2만큼 움직였을 때 페어 포지션의 예상 손익입니다.
// 롱은 1번 레그 매수/2번 레그 매도이고 숏은 반대입니다.
func ReversionPnL(sig domain.SignalType, qty1, qty2 int, move1, move2 float64) float64 {
	pnl := float64(qty1)*move1 - float64(qty2)*move2
	switch sig {
	case domain.Long:
		return pnl
	case domain.Short:
		return -pnl
	default:
		return 0
	}
}

// SpreadMoves는 스프레드 p1 - slope*p2가 delta만큼 변할 때 두 레그가 변화를 절반씩 나눠 가진 가격 변화입니다
func SpreadMoves(delta, slope float64) (float64, float64) {
	if slope == 0 {
		return delta, 0
	}
	return delta / 2, -delta / (2 * slope)
}

// RatioMoves는 가격비 p1/p2가 target이 되도록 두 레그가 로그 기준으로 절반씩 움직인 가격 변화입니다
func RatioMoves(p1, p2, target float64) (float64, float64) {
	if p1 <= 0 || p2 <= 0 || target <= 0 {
		return 0, 0
	}
	k := math.Sqrt(target / (p1 / p2))
	return p1 * (k - 1), p2 * (1/k - 1)
}

// Safe는 NaN/Inf를 0으로 바꿉니다
func Safe(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}
