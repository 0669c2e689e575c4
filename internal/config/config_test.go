package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/portfolio"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("COOLDOWN", "90s")
	t.Setenv("DISCORD_ALERT_WEBHOOK", "https://example.invalid/alert")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "portfolios.yaml", cfg.App.PortfolioFile)
	assert.Equal(t, time.Minute, cfg.App.TimerInterval)
	assert.Equal(t, "https://example.invalid/alert", cfg.Discord.AlertWebhook)
	assert.Empty(t, cfg.Discord.TradeWebhook)
	assert.Equal(t, 1800*time.Second, cfg.Trading.ExchangeLiveness)

	engine := cfg.EngineConfig()
	assert.Equal(t, 90*time.Second, engine.Cooldown)
	assert.Equal(t, 5*time.Minute, engine.ReconcileLock)
	assert.Equal(t, 1.99, engine.PriceSanityFactor)
	assert.Equal(t, 11*time.Minute, engine.HistoryRetry)
	assert.Equal(t, 250, engine.HistoryDays)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"타이머 간격", func(cfg *Config) { cfg.App.TimerInterval = time.Millisecond }},
		{"모의 현금", func(cfg *Config) { cfg.Paper.Cash = 0 }},
		{"가격 배수", func(cfg *Config) { cfg.Trading.PriceSanityFactor = 1 }},
		{"히스토리 일수", func(cfg *Config) { cfg.Trading.HistoryDays = 1 }},
		{"대기 시간", func(cfg *Config) { cfg.Trading.Cooldown = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}

	t.Run("환경변수 오류", func(t *testing.T) {
		t.Setenv("HISTORY_DAYS", "many")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

const portfolioYAML = `
portfolios:
  - id: main
    account: DU1
    max_pairs: 3
    account_alloc: 50
    pairs:
      - id: ko-pep
        symbol1: KO
        symbol2: PEP
        exchange1: NYSE
        exchange2: NASDAQ
        model: kalman-auto
        model_params:
          entry: 2.5
          exit: 0.5
          lookback: 60
        margin1: 25
        margin2: 30
        slot_occupation: 1.5
        trading_hours:
          start: "09:30"
          end: "16:00"
        max_days_enabled: true
        max_days: 20
        pdt_rule: true
      - id: xom-cvx
        symbol1: XOM
        symbol2: CVX
        margin1: 25
        margin2: 25
        trading_status: maintain
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPortfolios(t *testing.T) {
	file, err := LoadPortfolios(writeFile(t, portfolioYAML))
	require.NoError(t, err)
	require.Len(t, file.Portfolios, 1)

	pc := file.Portfolios[0]
	assert.Equal(t, "DU1", pc.Account)
	assert.Equal(t, 3, pc.MaxPairs)
	assert.Equal(t, 50.0, pc.AccountAlloc)
	require.Len(t, pc.Pairs, 2)

	ko := pc.Pairs[0]
	assert.Equal(t, "KO", ko.Symbol1)
	assert.Equal(t, "kalman-auto", ko.Model)
	assert.Equal(t, 2.5, ko.ModelParams["entry"])
	assert.Equal(t, 1.5, ko.SlotOccupation)
	assert.Equal(t, domain.HoursWindow{Start: "09:30", End: "16:00"}, ko.TradingHours)
	assert.True(t, ko.MaxDaysEnabled)
	assert.Equal(t, 20, ko.MaxDays)
	assert.True(t, ko.PDTRule)
	assert.Equal(t, domain.TradingActive, ko.TradingStatus)

	xom := pc.Pairs[1]
	assert.Equal(t, domain.TradingMaintain, xom.TradingStatus)
	assert.Equal(t, 1.0, xom.SlotOccupation)
	assert.Equal(t, "ratio", xom.Model)

	pf, err := pc.Build()
	require.NoError(t, err)
	assert.Len(t, pf.Pairs(), 2)
	_, ok := pf.Pair("xom-cvx")
	assert.True(t, ok)
}

func TestLoadPortfoliosInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"포트폴리오 없음", "portfolios: []\n", ErrInvalidPortfolio},
		{"계좌 없음", "portfolios:\n  - id: a\n", ErrInvalidPortfolio},
		{"배정 비율", "portfolios:\n  - id: a\n    account: DU1\n    account_alloc: 150\n", ErrInvalidPortfolio},
		{"점유율", `
portfolios:
  - id: a
    account: DU1
    pairs:
      - {id: p, symbol1: A, symbol2: B, margin1: 25, margin2: 25, slot_occupation: 3}
`, portfolio.ErrInvalidOccupation},
		{"중복 페어", `
portfolios:
  - id: a
    account: DU1
    pairs:
      - {id: p, symbol1: A, symbol2: B, margin1: 25, margin2: 25}
  - id: b
    account: DU2
    pairs:
      - {id: p, symbol1: C, symbol2: D, margin1: 25, margin2: 25}
`, ErrInvalidPortfolio},
		{"시간대", `
portfolios:
  - id: a
    account: DU1
    pairs:
      - {id: p, symbol1: A, symbol2: B, margin1: 25, margin2: 25, timezone: Mars/Olympus}
`, portfolio.ErrInvalidPair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPortfolios(writeFile(t, tt.yaml))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := LoadPortfolios(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
