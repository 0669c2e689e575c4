package broker

import "fmt"

// ErrorClass는 브로커 에러 분류입니다
type ErrorClass int

const (
	Informational ErrorClass = iota // 주문에 영향 없음
	Recoverable                     // 일정 시간 기다린 뒤 취소
	Unrecoverable                   // 즉시 실패 처리 후 수동 개입
)

func (c ErrorClass) String() string {
	switch c {
	case Informational:
		return "informational"
	case Recoverable:
		return "recoverable"
	default:
		return "unrecoverable"
	}
}

// 스스로 풀릴 수 있는 에러 코드
var recoverableCodes = map[int]bool{
	161:  true, // 취소할 수 없는 상태
	404:  true, // 공매도 주식 확보 대기
	1100: true, // 연결 끊김
	2110: true, // 서버 연결 끊김
}

// Classify는 브로커 에러 코드를 분류합니다
func Classify(code int) ErrorClass {
	if recoverableCodes[code] {
		return Recoverable
	}
	if code == 399 || (code >= 2100 && code < 2200) {
		return Informational
	}
	return Unrecoverable
}

// Error는 브로커가 보고한 에러입니다
type Error struct {
	OrderID int64
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("브로커 에러 [주문 %d, 코드 %d]: %s", e.OrderID, e.Code, e.Message)
}

// Class는 에러 분류를 반환합니다
func (e *Error) Class() ErrorClass {
	return Classify(e.Code)
}
