package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/portfolio"
)

var ErrInvalidPortfolio = errors.New("잘못된 포트폴리오 설정입니다")

// PortfolioFile은 포트폴리오/페어 정의 파일입니다
type PortfolioFile struct {
	Portfolios []PortfolioConfig `mapstructure:"portfolios"`
}

// PortfolioConfig는 계좌 하나에 묶인 포트폴리오 정의입니다
type PortfolioConfig struct {
	ID           string              `mapstructure:"id"`
	Account      string              `mapstructure:"account"`
	MaxPairs     int                 `mapstructure:"max_pairs"`
	AccountAlloc float64             `mapstructure:"account_alloc"`
	Pairs        []domain.PairConfig `mapstructure:"pairs"`
}

// LoadPortfolios는 YAML 파일에서 포트폴리오 정의를 읽고 검증합니다
func LoadPortfolios(path string) (*PortfolioFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("포트폴리오 파일 읽기 실패: %w", err)
	}

	var file PortfolioFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("포트폴리오 파일 파싱 실패: %w", err)
	}

	file.applyDefaults()
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *PortfolioFile) applyDefaults() {
	for i := range f.Portfolios {
		pc := &f.Portfolios[i]
		if pc.MaxPairs == 0 {
			pc.MaxPairs = 1
		}
		if pc.AccountAlloc == 0 {
			pc.AccountAlloc = 100
		}
		for j := range pc.Pairs {
			pair := &pc.Pairs[j]
			if pair.TradingStatus == "" {
				pair.TradingStatus = domain.TradingActive
			}
			if pair.SlotOccupation == 0 {
				pair.SlotOccupation = 1
			}
			if pair.Model == "" {
				pair.Model = "ratio"
			}
		}
	}
}

// Validate는 포트폴리오 정의를 검사합니다
func (f *PortfolioFile) Validate() error {
	if len(f.Portfolios) == 0 {
		return fmt.Errorf("%w: 포트폴리오가 없습니다", ErrInvalidPortfolio)
	}

	portfolioIDs := make(map[string]bool)
	pairIDs := make(map[string]bool)
	for _, pc := range f.Portfolios {
		switch {
		case pc.ID == "":
			return fmt.Errorf("%w: id가 비어있습니다", ErrInvalidPortfolio)
		case portfolioIDs[pc.ID]:
			return fmt.Errorf("%w: 중복된 id %s", ErrInvalidPortfolio, pc.ID)
		case pc.Account == "":
			return fmt.Errorf("%w: %s 계좌가 비어있습니다", ErrInvalidPortfolio, pc.ID)
		case pc.MaxPairs < 1:
			return fmt.Errorf("%w: %s max_pairs는 1 이상이어야 합니다", ErrInvalidPortfolio, pc.ID)
		case pc.AccountAlloc <= 0 || pc.AccountAlloc > 100:
			return fmt.Errorf("%w: %s account_alloc은 0 초과 100 이하이어야 합니다", ErrInvalidPortfolio, pc.ID)
		}
		portfolioIDs[pc.ID] = true

		for _, pair := range pc.Pairs {
			if err := portfolio.ValidatePairConfig(pair); err != nil {
				return fmt.Errorf("%s/%s: %w", pc.ID, pair.ID, err)
			}
			if pairIDs[pair.ID] {
				return fmt.Errorf("%w: 중복된 페어 id %s", ErrInvalidPortfolio, pair.ID)
			}
			pairIDs[pair.ID] = true
		}
	}
	return nil
}

// Build는 정의대로 포트폴리오와 페어를 생성합니다
func (pc PortfolioConfig) Build() (*portfolio.Portfolio, error) {
	pf := portfolio.New(pc.ID, pc.Account, pc.MaxPairs, pc.AccountAlloc)
	for _, cfg := range pc.Pairs {
		if _, err := pf.AddPair(cfg); err != nil {
			return nil, err
		}
	}
	return pf, nil
}
