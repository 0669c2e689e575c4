package notification

import "github.com/assist-by/pairs/internal/domain"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Sink는 엔진이 외부 소비자에게 발행하는 이벤트 인터페이스입니다.
// 엔진은 Sink의 처리 결과에 의존하지 않으므로 구현체는 블록하지 않아야 합니다.
type Sink interface {
	// Log는 참고용 로그 한 줄을 전달합니다
	Log(pairID, message string)

	// Transaction은 체결/수수료가 모두 확정된 레그 거래 기록을 전달합니다
	Transaction(tx domain.Transaction)

	// History는 페어 단위 진입/청산 이력을 전달합니다
	History(rec domain.HistoryRecord)

	// PnL은 포지션 보유 중 주기적 손익을 전달합니다
	PnL(update domain.PnLUpdate)

	// ManualIntervention은 수동 개입 요청을 전달합니다
	ManualIntervention(req domain.InterventionRequest)

	// InterventionCleared는 재개로 수동 개입 요청이 해제되었음을 전달합니다
	InterventionCleared(pairID, account string)

	// PairStateUpdated는 포지션 진입/청산 시 저장할 페어 상태를 전달합니다
	PairStateUpdated(update domain.PairStateUpdate)
}

// GetColorForPosition은 포지션 방향에 따른 색상을 반환합니다
func GetColorForPosition(position domain.PositionSide) int {
	switch position {
	case domain.LongPosition:
		return ColorSuccess
	case domain.ShortPosition:
		return ColorError
	default:
		return ColorInfo
	}
}

// Nop은 아무 것도 하지 않는 Sink입니다
type Nop struct{}

func (Nop) Log(string, string)                            {}
func (Nop) Transaction(domain.Transaction)                {}
func (Nop) History(domain.HistoryRecord)                  {}
func (Nop) PnL(domain.PnLUpdate)                          {}
func (Nop) ManualIntervention(domain.InterventionRequest) {}
func (Nop) InterventionCleared(string, string)            {}
func (Nop) PairStateUpdated(domain.PairStateUpdate)       {}
