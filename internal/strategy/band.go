package strategy

import (
	"fmt"
	"math"

	"github.com/assist-by/pairs/internal/domain"
)

// EntryMode는 진입 시그널을 내는 방식입니다
type EntryMode string

const (
	EntrySimple   EntryMode = "simple"   // 임계값을 넘으면 항상
	EntryUptick   EntryMode = "uptick"   // 임계값을 새로 넘는 순간에만
	EntryDowntick EntryMode = "downtick" // downtick 임계값을 넘었다가 entry~downtick 구간으로 돌아올 때
)

// BandConfig는 진입/청산 밴드 설정입니다.
// 롱은 z <= -Entry, 숏은 z >= Entry에서 진입하고 |z| > MaxEntry면 진입하지 않습니다 (MaxEntry=0은 제한 없음).
type BandConfig struct {
	Entry    float64
	Exit     float64
	MaxEntry float64
	Downtick float64
	Mode     EntryMode
}

// Validate는 밴드 설정을 검사합니다
func (c BandConfig) Validate() error {
	switch c.Mode {
	case EntrySimple, EntryUptick, EntryDowntick:
	default:
		return fmt.Errorf("%w: entry_mode=%s", ErrUnsupportedModel, c.Mode)
	}
	if c.Entry <= 0 {
		return fmt.Errorf("entry는 0보다 커야 합니다: %v", c.Entry)
	}
	if c.Exit >= c.Entry {
		return fmt.Errorf("exit(%v)는 entry(%v)보다 작아야 합니다", c.Exit, c.Entry)
	}
	if c.MaxEntry != 0 && c.MaxEntry <= c.Entry {
		return fmt.Errorf("max_entry(%v)는 entry(%v)보다 커야 합니다", c.MaxEntry, c.Entry)
	}
	if c.Mode == EntryDowntick && c.Downtick <= c.Entry {
		return fmt.Errorf("downtick(%v)은 entry(%v)보다 커야 합니다", c.Downtick, c.Entry)
	}
	return nil
}

// BandLogic은 밴드 기반 진입/청산 판단기입니다. 진입 모드에 따라 직전 z-score를 기억합니다
type BandLogic struct {
	cfg BandConfig

	prevLong, prevShort float64
	hasPrev             bool
	armedLong           bool
	armedShort          bool
}

// NewBandLogic은 새 판단기를 생성합니다
func NewBandLogic(cfg BandConfig) *BandLogic {
	return &BandLogic{cfg: cfg}
}

// Config는 밴드 설정을 반환합니다
func (b *BandLogic) Config() BandConfig {
	return b.cfg
}

// Reset은 직전 상태를 지웁니다
func (b *BandLogic) Reset() {
	b.hasPrev = false
	b.armedLong = false
	b.armedShort = false
}

func (b *BandLogic) withinMax(z float64) bool {
	return b.cfg.MaxEntry == 0 || math.Abs(z) <= b.cfg.MaxEntry
}

// Entry는 롱 기준 z-score와 숏 기준 z-score로 진입 시그널을 계산합니다
func (b *BandLogic) Entry(zLong, zShort float64) domain.SignalType {
	longBeyond := zLong <= -b.cfg.Entry
	shortBeyond := zShort >= b.cfg.Entry

	var sig domain.SignalType
	switch b.cfg.Mode {
	case EntryUptick:
		if longBeyond && b.hasPrev && b.prevLong > -b.cfg.Entry && b.withinMax(zLong) {
			sig = domain.Long
		} else if shortBeyond && b.hasPrev && b.prevShort < b.cfg.Entry && b.withinMax(zShort) {
			sig = domain.Short
		}
	case EntryDowntick:
		sig = b.downtick(zLong, zShort)
	default:
		if longBeyond && b.withinMax(zLong) {
			sig = domain.Long
		} else if shortBeyond && b.withinMax(zShort) {
			sig = domain.Short
		}
	}

	b.prevLong, b.prevShort = zLong, zShort
	b.hasPrev = true
	return sig
}

func (b *BandLogic) downtick(zLong, zShort float64) domain.SignalType {
	// 롱 쪽
	switch {
	case zLong <= -b.cfg.Downtick:
		b.armedLong = true
	case zLong > -b.cfg.Entry:
		b.armedLong = false
	}
	// 숏 쪽
	switch {
	case zShort >= b.cfg.Downtick:
		b.armedShort = true
	case zShort < b.cfg.Entry:
		b.armedShort = false
	}

	if b.armedLong && zLong <= -b.cfg.Entry && zLong > -b.cfg.Downtick && b.withinMax(zLong) {
		return domain.Long
	}
	if b.armedShort && zShort >= b.cfg.Entry && zShort < b.cfg.Downtick && b.withinMax(zShort) {
		return domain.Short
	}
	return domain.NoSignal
}

// Exit은 청산 기준 z-score로 청산 여부를 판단합니다.
// 롱은 zExit >= -Exit, 숏은 zExit <= Exit에서 청산합니다.
func (b *BandLogic) Exit(zExit float64, pos domain.PositionSide) bool {
	switch pos {
	case domain.LongPosition:
		return zExit >= -b.cfg.Exit
	case domain.ShortPosition:
		return zExit <= b.cfg.Exit
	default:
		return false
	}
}

// ExitTarget은 포지션 방향별 청산 목표 z-score를 반환합니다
func (b *BandLogic) ExitTarget(sig domain.SignalType) float64 {
	if sig == domain.Short {
		return b.cfg.Exit
	}
	return -b.cfg.Exit
}
