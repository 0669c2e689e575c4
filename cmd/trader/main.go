package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/assist-by/pairs/internal/backtest"
	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/broker/paper"
	"github.com/assist-by/pairs/internal/config"
	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/feed"
	"github.com/assist-by/pairs/internal/history"
	"github.com/assist-by/pairs/internal/notification"
	"github.com/assist-by/pairs/internal/notification/discord"
	"github.com/assist-by/pairs/internal/portfolio"
	"github.com/assist-by/pairs/internal/scheduler"
	"github.com/assist-by/pairs/internal/store"
	"github.com/assist-by/pairs/internal/strategy"
	"github.com/assist-by/pairs/internal/strategy/kalman"
	"github.com/assist-by/pairs/internal/strategy/ratio"
	"github.com/assist-by/pairs/internal/strategy/residual"
	"github.com/assist-by/pairs/internal/telemetry"
	"github.com/assist-by/pairs/internal/trading"
)

// TimerTask는 타이머 주기마다 계좌 상태를 갱신하고 타이머 메시지를 보냅니다
type TimerTask struct {
	router     *trading.Router
	brokers    map[string]*paper.Broker
	portfolios []*portfolio.Portfolio
}

// Execute는 포트폴리오 스냅샷과 타이머 메시지를 발행합니다
func (t *TimerTask) Execute(ctx context.Context, at time.Time) error {
	for _, pf := range t.portfolios {
		if pb, ok := t.brokers[pf.Account]; ok {
			pf.SetEquity(pb.Equity())
		}
	}
	for _, account := range sortedAccounts(t.brokers) {
		t.brokers[account].PublishPortfolio()
	}

	if n := t.router.Publish(trading.TimerMsg{Time: at}); n == 0 {
		return fmt.Errorf("타이머 메시지를 받은 페어가 없습니다")
	}
	return nil
}

func main() {
	// 명령줄 플래그 정의
	checkFlag := flag.Bool("check", false, "설정과 포트폴리오 파일만 검증하고 종료")
	backtestFlag := flag.String("backtest", "", "지정한 페어 id로 백테스트 실행 후 종료")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("페어 트레이딩 봇 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	portfolioFile, err := config.LoadPortfolios(cfg.App.PortfolioFile)
	if err != nil {
		log.Fatalf("포트폴리오 로드 실패: %v", err)
	}

	if *checkFlag {
		log.Printf("설정 검증 완료: 포트폴리오 %d개", len(portfolioFile.Portfolios))
		return
	}

	// 모델 레지스트리 생성
	models := strategy.NewRegistry()
	ratio.RegisterModel(models)
	residual.RegisterModel(models)
	kalman.RegisterModel(models)

	var discordClient *discord.Client
	if cfg.Discord.AlertWebhook != "" || cfg.Discord.TradeWebhook != "" {
		discordClient = discord.NewClient(
			cfg.Discord.AlertWebhook,
			cfg.Discord.TradeWebhook,
			discord.WithTimeout(10*time.Second),
		)
	}

	// 백테스트 모드 처리
	if *backtestFlag != "" {
		if err := runBacktest(ctx, cfg, portfolioFile, models, *backtestFlag, discordClient); err != nil {
			if discordClient != nil {
				if err := discordClient.SendError(fmt.Errorf("백테스트 실패: %w", err)); err != nil {
					log.Printf("에러 알림 전송 실패: %v", err)
				}
			}
			log.Fatalf("백테스트 실패: %v", err)
		}
		return
	}

	// 상태 저장소
	db, err := store.Open(cfg.App.DBPath)
	if err != nil {
		log.Fatalf("저장소 열기 실패: %v", err)
	}
	defer db.Close()

	states, err := db.LoadPairStates(ctx)
	if err != nil {
		log.Fatalf("페어 상태 로드 실패: %v", err)
	}
	blocked, err := db.BlockedPairs(ctx)
	if err != nil {
		log.Fatalf("미해결 수동 개입 조회 실패: %v", err)
	}

	router := trading.NewRouter()
	router.Start()

	brokers := broker.NewRegistry()
	brokers.Start()
	liveness := broker.NewLiveness(cfg.Trading.ExchangeLiveness)

	paperBrokers := make(map[string]*paper.Broker)
	quoteFeed := feed.NewClient(cfg.App.QuoteFeedURL, func(msg trading.Message) {
		for _, pb := range paperBrokers {
			pb.Observe(msg)
		}
		router.Publish(msg)
	}, feed.WithLiveness(liveness))

	historySource := history.NewSource(newFetcher(cfg), router)

	// 알림 싱크 구성
	hub := telemetry.NewHub(router.Publish)
	sinks := []notification.Sink{notification.LogSink{}, db, hub}
	if discordClient != nil {
		sinks = append(sinks, discordClient)
	}
	bus := notification.NewBus(notification.DefaultBufferSize, sinks...)

	var portfolios []*portfolio.Portfolio
	engineConfig := cfg.EngineConfig()
	for _, pc := range portfolioFile.Portfolios {
		pf, err := pc.Build()
		if err != nil {
			log.Fatalf("포트폴리오 %s 생성 실패: %v", pc.ID, err)
		}
		portfolios = append(portfolios, pf)

		pb, ok := paperBrokers[pc.Account]
		if !ok {
			pb = paper.New(pc.Account, cfg.Paper.Cash, router,
				paper.WithFeeRate(cfg.Paper.FeeRate),
				paper.WithSlippage(cfg.Paper.Slippage),
				paper.WithQuoteSubscriber(quoteFeed),
			)
			paperBrokers[pc.Account] = pb
			if err := brokers.Register(broker.NewConnection(pc.Account, pb)); err != nil {
				log.Fatalf("브로커 등록 실패: %v", err)
			}
		}
		pf.SetEquity(pb.Equity())

		for _, pair := range pf.Pairs() {
			if st, ok := states[pair.ID()]; ok && !store.RestoreRuntime(pair, pc.Account, st) {
				log.Printf("[%s] 저장된 상태의 계좌가 달라 복원하지 않습니다", pair.ID())
			}
			if req, ok := blocked[pair.ID()]; ok && store.RestoreBlocked(pair, pc.Account, req) {
				log.Printf("[%s] 미해결 수동 개입으로 막힌 상태로 시작합니다: %s", pair.ID(), req.Reason)
			}

			core := trading.NewPairTradingCore(engineConfig, trading.Deps{
				Portfolio: pf,
				Pair:      pair,
				Models:    models,
				Brokers:   brokers,
				History:   historySource,
				Exchanges: liveness,
				Notifier:  bus,
				Now:       time.Now,
			})
			if err := router.Register(ctx, core); err != nil {
				log.Fatalf("페어 %s 등록 실패: %v", pair.ID(), err)
			}
		}
	}

	go historySource.Run(ctx)
	go func() {
		if err := quoteFeed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("시세 피드 종료: %v", err)
		}
	}()
	go hub.Run(ctx)
	if cfg.App.TelemetryAddr != "" {
		go func() {
			if err := hub.Serve(ctx, cfg.App.TelemetryAddr); err != nil {
				log.Printf("텔레메트리 서버 종료: %v", err)
			}
		}()
	}

	for _, account := range sortedAccounts(paperBrokers) {
		paperBrokers[account].SetConnected(true)
	}

	if discordClient != nil {
		if err := discordClient.SendInfo(fmt.Sprintf("🚀 페어 트레이딩 봇이 시작되었습니다. (페어 %d개)", len(router.Active()))); err != nil {
			log.Printf("시작 알림 전송 실패: %v", err)
		}
	}

	// 타이머 스케줄러
	task := &TimerTask{router: router, brokers: paperBrokers, portfolios: portfolios}
	timer := scheduler.NewScheduler(cfg.App.TimerInterval, task)

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := timer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("스케줄러 실행 중 에러 발생: %v", err)
		}
	}()

	// 시그널 대기
	sig := <-sigChan
	log.Printf("시스템 종료 신호 수신: %v", sig)

	timer.Stop()
	router.Stop()
	brokers.Stop()
	cancel()
	bus.Close()

	if discordClient != nil {
		if err := discordClient.SendInfo("👋 페어 트레이딩 봇이 정상적으로 종료되었습니다."); err != nil {
			log.Printf("종료 알림 전송 실패: %v", err)
		}
	}

	log.Println("프로그램을 종료합니다.")
}

func runBacktest(
	ctx context.Context,
	cfg *config.Config,
	file *config.PortfolioFile,
	models *strategy.Registry,
	pairID string,
	discordClient *discord.Client,
) error {
	pairCfg, ok := findPair(file, pairID)
	if !ok {
		return fmt.Errorf("페어를 찾을 수 없습니다: %s", pairID)
	}

	model, err := strategy.CreateModelFromConfig(models, pairCfg)
	if err != nil {
		return err
	}

	fetcher := newFetcher(cfg)
	s1, err := fetcher.FetchDaily(ctx, pairCfg.Symbol1, 0)
	if err != nil {
		return fmt.Errorf("%s 데이터 로드 실패: %w", pairCfg.Symbol1, err)
	}
	s2, err := fetcher.FetchDaily(ctx, pairCfg.Symbol2, 0)
	if err != nil {
		return fmt.Errorf("%s 데이터 로드 실패: %w", pairCfg.Symbol2, err)
	}
	s1, s2 = history.Align(s1, s2)
	log.Printf("'%s' 페어에 대해 %d거래일 백테스트를 시작합니다...", pairID, len(s1))

	engine, err := backtest.NewEngine(pairID, model, s1, s2,
		backtest.ConfigFromPair(pairCfg, cfg.Paper.Cash, cfg.Paper.FeeRate))
	if err != nil {
		return err
	}
	result, err := engine.Run()
	if err != nil {
		return err
	}

	log.Printf("수익 팩터=%.2f, 평균 보유일=%.1f, 연율화 수익률=%.2f%%, 최종 잔고=%.2f",
		result.ProfitFactor, result.AvgHoldingDays, result.AnnualizedReturn, result.FinalBalance)

	if discordClient != nil {
		msg := fmt.Sprintf("✅ %s 백테스트 완료: 거래 %d회, 승률 %.2f%%, 누적 수익률 %.2f%%, 최대 낙폭 %.2f%%",
			pairID, result.TotalTrades, result.WinRate, result.CumulativeReturn, result.MaxDrawdown)
		if err := discordClient.SendInfo(msg); err != nil {
			log.Printf("백테스트 알림 전송 실패: %v", err)
		}
	}
	return nil
}

// newFetcher는 HISTORY_URL이 있으면 REST 조회기를, 없으면 CSV 조회기를 반환합니다
func newFetcher(cfg *config.Config) history.Fetcher {
	if cfg.App.HistoryURL != "" {
		return history.NewHTTPFetcher(cfg.App.HistoryURL,
			history.WithAPIKey(cfg.App.HistoryAPIKey),
			history.WithTimeout(10*time.Second),
		)
	}
	return history.CSVFetcher{Dir: cfg.App.HistoryDir}
}

func findPair(file *config.PortfolioFile, pairID string) (domain.PairConfig, bool) {
	for _, pc := range file.Portfolios {
		for _, pair := range pc.Pairs {
			if pair.ID == pairID {
				return pair, true
			}
		}
	}
	return domain.PairConfig{}, false
}

func sortedAccounts(brokers map[string]*paper.Broker) []string {
	accounts := make([]string, 0, len(brokers))
	for account := range brokers {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
