package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/assist-by/pairs/internal/domain"
)

var (
	ErrNoData       = errors.New("일봉 데이터가 없습니다")
	ErrInvalidInput = errors.New("잘못된 요청입니다")
	ErrMalformed    = errors.New("일봉 데이터 형식이 잘못되었습니다")
)

// Fetcher는 종목 하나의 일봉 종가를 가져옵니다. 결과는 오래된 순서입니다
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, days int) (domain.PriceSeries, error)
}

// CSVFetcher는 Dir/SYMBOL.csv 파일에서 일봉 종가를 읽습니다.
// 파일은 date,close 헤더를 갖고 날짜는 YYYY-MM-DD 형식입니다.
type CSVFetcher struct {
	Dir string
}

// FetchDaily는 마지막 days개 일봉을 반환합니다. days가 0 이하이면 파일 전체를 반환합니다
func (f CSVFetcher) FetchDaily(ctx context.Context, symbol string, days int) (domain.PriceSeries, error) {
	if symbol == "" || strings.ContainsAny(symbol, `/\`) {
		return nil, fmt.Errorf("%w: 심볼 %q", ErrInvalidInput, symbol)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.Dir, strings.ToUpper(symbol)+".csv")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
		}
		return nil, err
	}
	defer file.Close()

	series, err := parseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	if days <= 0 {
		return series, nil
	}
	return series.Tail(days), nil
}

func parseCSV(r io.Reader) (domain.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var series domain.PriceSeries
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%d번째 줄: 필드 수 부족", i+1)
		}
		if i == 0 && strings.EqualFold(rec[0], "date") {
			continue
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("%d번째 줄 날짜: %w", i+1, err)
		}
		closePrice, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%d번째 줄 종가: %w", i+1, err)
		}
		series = append(series, domain.DailyBar{Date: date, Close: closePrice})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// Align은 두 레그에 모두 있는 날짜만 남깁니다
func Align(s1, s2 domain.PriceSeries) (domain.PriceSeries, domain.PriceSeries) {
	index := make(map[string]bool, len(s2))
	for _, bar := range s2 {
		index[bar.DateKey()] = true
	}
	common := make(map[string]bool, len(s1))
	var a1 domain.PriceSeries
	for _, bar := range s1 {
		if index[bar.DateKey()] {
			a1 = append(a1, bar)
			common[bar.DateKey()] = true
		}
	}
	var a2 domain.PriceSeries
	for _, bar := range s2 {
		if common[bar.DateKey()] {
			a2 = append(a2, bar)
		}
	}
	return a1, a2
}
