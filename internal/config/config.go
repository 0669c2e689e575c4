package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/assist-by/pairs/internal/trading"
)

type Config struct {
	// 애플리케이션 설정
	App struct {
		PortfolioFile string        `envconfig:"PORTFOLIO_FILE" default:"portfolios.yaml"`
		DBPath        string        `envconfig:"DB_PATH" default:"pairs.db"`
		HistoryDir    string        `envconfig:"HISTORY_DIR" default:"data/daily"`
		HistoryURL    string        `envconfig:"HISTORY_URL"` // 설정되면 HISTORY_DIR 대신 REST API 사용
		HistoryAPIKey string        `envconfig:"HISTORY_API_KEY"`
		QuoteFeedURL  string        `envconfig:"QUOTE_FEED_URL" default:"ws://localhost:8765/quotes"`
		TelemetryAddr string        `envconfig:"TELEMETRY_ADDR" default:":8090"`
		TimerInterval time.Duration `envconfig:"TIMER_INTERVAL" default:"1m"`
	}

	// 디스코드 웹훅 설정 (비어 있으면 전송하지 않음)
	Discord struct {
		AlertWebhook string `envconfig:"DISCORD_ALERT_WEBHOOK"`
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
	}

	// 모의 브로커 설정
	Paper struct {
		Cash     float64 `envconfig:"PAPER_CASH" default:"100000"`
		FeeRate  float64 `envconfig:"PAPER_FEE_RATE" default:"0.0004"`
		Slippage float64 `envconfig:"PAPER_SLIPPAGE" default:"0.0005"`
	}

	// 엔진 설정
	Trading struct {
		ReconcileLock     time.Duration `envconfig:"RECONCILE_LOCK" default:"5m"`
		PriceSanityFactor float64       `envconfig:"PRICE_SANITY_FACTOR" default:"1.99"`
		Cooldown          time.Duration `envconfig:"COOLDOWN" default:"120s"`
		RecoverableWait   time.Duration `envconfig:"RECOVERABLE_WAIT" default:"120s"`
		HistoryRetry      time.Duration `envconfig:"HISTORY_RETRY" default:"11m"`
		HistoryMaxAgeDays int           `envconfig:"HISTORY_MAX_AGE_DAYS" default:"5"`
		HistoryDays       int           `envconfig:"HISTORY_DAYS" default:"250"`
		PDTMinEquity      float64       `envconfig:"PDT_MIN_EQUITY" default:"25000"`
		TickMaxAge        time.Duration `envconfig:"TICK_MAX_AGE" default:"2s"`
		GenericTickMaxAge time.Duration `envconfig:"GENERIC_TICK_MAX_AGE" default:"5s"`
		MessageMaxAge     time.Duration `envconfig:"MESSAGE_MAX_AGE" default:"30s"`
		MinQuotePrice     float64       `envconfig:"MIN_QUOTE_PRICE" default:"0.01"`
		ExchangeLiveness  time.Duration `envconfig:"EXCHANGE_LIVENESS" default:"1800s"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.App.PortfolioFile == "" {
		return fmt.Errorf("PORTFOLIO_FILE이 비어있습니다")
	}

	if cfg.App.TimerInterval < time.Second {
		return fmt.Errorf("TIMER_INTERVAL은 1초 이상이어야 합니다")
	}

	if cfg.Paper.Cash <= 0 {
		return fmt.Errorf("PAPER_CASH는 0보다 커야 합니다")
	}

	if cfg.Paper.FeeRate < 0 || cfg.Paper.Slippage < 0 {
		return fmt.Errorf("PAPER_FEE_RATE와 PAPER_SLIPPAGE는 음수일 수 없습니다")
	}

	if cfg.Trading.PriceSanityFactor <= 1 {
		return fmt.Errorf("PRICE_SANITY_FACTOR는 1보다 커야 합니다")
	}

	if cfg.Trading.HistoryDays < 2 {
		return fmt.Errorf("HISTORY_DAYS는 2 이상이어야 합니다")
	}

	if cfg.Trading.HistoryMaxAgeDays < 1 {
		return fmt.Errorf("HISTORY_MAX_AGE_DAYS는 1 이상이어야 합니다")
	}

	for name, d := range map[string]time.Duration{
		"RECONCILE_LOCK":       cfg.Trading.ReconcileLock,
		"COOLDOWN":             cfg.Trading.Cooldown,
		"RECOVERABLE_WAIT":     cfg.Trading.RecoverableWait,
		"HISTORY_RETRY":        cfg.Trading.HistoryRetry,
		"TICK_MAX_AGE":         cfg.Trading.TickMaxAge,
		"GENERIC_TICK_MAX_AGE": cfg.Trading.GenericTickMaxAge,
		"MESSAGE_MAX_AGE":      cfg.Trading.MessageMaxAge,
		"EXCHANGE_LIVENESS":    cfg.Trading.ExchangeLiveness,
	} {
		if d <= 0 {
			return fmt.Errorf("%s는 0보다 커야 합니다", name)
		}
	}

	return nil
}

// EngineConfig는 엔진 상수를 반환합니다
func (cfg *Config) EngineConfig() trading.Config {
	t := cfg.Trading
	return trading.Config{
		ReconcileLock:     t.ReconcileLock,
		PriceSanityFactor: t.PriceSanityFactor,
		Cooldown:          t.Cooldown,
		RecoverableWait:   t.RecoverableWait,
		HistoryRetry:      t.HistoryRetry,
		HistoryMaxAgeDays: t.HistoryMaxAgeDays,
		HistoryDays:       t.HistoryDays,
		PDTMinEquity:      t.PDTMinEquity,
		TickMaxAge:        t.TickMaxAge,
		GenericTickMaxAge: t.GenericTickMaxAge,
		MessageMaxAge:     t.MessageMaxAge,
		MinQuotePrice:     t.MinQuotePrice,
	}
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
// .env 파일이 없으면 환경변수만 사용합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		log.Printf(".env 파일을 읽지 않았습니다: %v", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
