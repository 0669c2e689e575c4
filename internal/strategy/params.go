package strategy

import (
	"fmt"
	"strconv"
)

// Float은 파라미터 맵에서 실수 값을 읽습니다. 없으면 def를 반환합니다
func Float(params map[string]interface{}, key string, def float64) (float64, error) {
	val, ok := params[key]
	if !ok || val == nil {
		return def, nil
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("파라미터 %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("파라미터 %s: 숫자가 아닙니다 (%T)", key, val)
	}
}

// Int는 파라미터 맵에서 정수 값을 읽습니다
func Int(params map[string]interface{}, key string, def int) (int, error) {
	f, err := Float(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("파라미터 %s: 정수가 아닙니다 (%v)", key, f)
	}
	return int(f), nil
}

// String은 파라미터 맵에서 문자열 값을 읽습니다
func String(params map[string]interface{}, key, def string) (string, error) {
	val, ok := params[key]
	if !ok || val == nil {
		return def, nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("파라미터 %s: 문자열이 아닙니다 (%T)", key, val)
	}
	return s, nil
}

// ParamReader는 여러 파라미터를 읽으면서 첫 에러만 기억합니다
type ParamReader struct {
	Params map[string]interface{}
	Err    error
}

func (r *ParamReader) Float(key string, def float64) float64 {
	if r.Err != nil {
		return def
	}
	v, err := Float(r.Params, key, def)
	r.Err = err
	return v
}

func (r *ParamReader) Int(key string, def int) int {
	if r.Err != nil {
		return def
	}
	v, err := Int(r.Params, key, def)
	r.Err = err
	return v
}

func (r *ParamReader) String(key, def string) string {
	if r.Err != nil {
		return def
	}
	v, err := String(r.Params, key, def)
	r.Err = err
	return v
}

// Band는 공통 밴드 파라미터(entry, exit, max_entry, entry_mode, downtick)를 읽습니다
func (r *ParamReader) Band() BandConfig {
	cfg := BandConfig{
		Entry:    r.Float("entry", 2.0),
		Exit:     r.Float("exit", 0.0),
		MaxEntry: r.Float("max_entry", 0),
		Mode:     EntryMode(r.String("entry_mode", string(EntrySimple))),
	}
	cfg.Downtick = r.Float("downtick", cfg.Entry+1)
	if r.Err == nil {
		r.Err = cfg.Validate()
	}
	return cfg
}
