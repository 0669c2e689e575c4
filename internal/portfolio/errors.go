package portfolio

import "fmt"

// Error 타입들은 포트폴리오 관리 중 발생할 수 있는 다양한 에러를 정의합니다
var (
	ErrUnknownPair       = fmt.Errorf("포트폴리오에 없는 페어입니다")
	ErrPairExists        = fmt.Errorf("이미 등록된 페어입니다")
	ErrPairBusy          = fmt.Errorf("포지션 또는 미체결 주문이 있는 페어입니다")
	ErrInvalidOccupation = fmt.Errorf("슬롯 점유율은 0.1 이상 2.0 이하이어야 합니다")
	ErrInvalidPair       = fmt.Errorf("잘못된 페어 설정입니다")
)

// PairError는 페어 관리 에러를 확장한 구조체입니다
type PairError struct {
	PairID string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *PairError) Error() string {
	if e.PairID != "" {
		return fmt.Sprintf("페어 에러 [%s, 작업: %s]: %v", e.PairID, e.Op, e.Err)
	}
	return fmt.Sprintf("페어 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *PairError) Unwrap() error {
	return e.Err
}

// NewPairError는 새로운 PairError를 생성합니다
func NewPairError(pairID, op string, err error) *PairError {
	return &PairError{
		PairID: pairID,
		Op:     op,
		Err:    err,
	}
}
