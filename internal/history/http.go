package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/assist-by/pairs/internal/domain"
)

// HTTPFetcher는 REST API에서 일봉 종가를 조회합니다.
// GET {baseURL}/daily?symbol=KO&days=250 응답은 [{"date":"2024-03-01","close":"61.25"}] 형식입니다.
type HTTPFetcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// HTTPOption은 HTTPFetcher 생성 옵션을 정의합니다
type HTTPOption func(*HTTPFetcher)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.httpClient.Timeout = timeout
	}
}

// WithAPIKey는 요청마다 보낼 API 키를 설정합니다
func WithAPIKey(apiKey string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.apiKey = apiKey
	}
}

// NewHTTPFetcher는 새로운 HTTP 일봉 조회기를 생성합니다
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type dailyBarResponse struct {
	Date  string          `json:"date"`
	Close json.RawMessage `json:"close"` // 숫자 또는 숫자 문자열
}

// FetchDaily는 마지막 days개 일봉을 조회합니다. days가 0 이하이면 서버 기본값을 따릅니다
func (f *HTTPFetcher) FetchDaily(ctx context.Context, symbol string, days int) (domain.PriceSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: 심볼이 비어있습니다", ErrInvalidInput)
	}

	params := url.Values{}
	params.Add("symbol", strings.ToUpper(symbol))
	if days > 0 {
		params.Add("days", strconv.Itoa(days))
	}

	body, err := f.doRequest(ctx, "/daily", params)
	if err != nil {
		return nil, err
	}

	var raw []dailyBarResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: 일봉 데이터 파싱 실패: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	series := make(domain.PriceSeries, 0, len(raw))
	for i, r := range raw {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %d번째 날짜: %v", ErrMalformed, i, err)
		}
		closePrice, err := strconv.ParseFloat(strings.Trim(string(r.Close), `"`), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %d번째 종가: %v", ErrMalformed, i, err)
		}
		series = append(series, domain.DailyBar{Date: date, Close: closePrice})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	if days <= 0 {
		return series, nil
	}
	return series.Tail(days), nil
}

// doRequest는 GET 요청을 실행하고 응답 본문을 반환합니다
func (f *HTTPFetcher) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL, err := url.Parse(f.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: URL 파싱 실패: %v", ErrInvalidInput, err)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("X-API-KEY", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	// 상태 코드 확인
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNoData, params.Get("symbol"))
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.TrimSpace(string(body)))
	default:
		// 5xx, 429 등은 재시도 대상
		return nil, fmt.Errorf("HTTP 에러(%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
