package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/domain"
)

func TestHTTPFetcher(t *testing.T) {
	var gotKey, gotDays string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotDays = r.URL.Query().Get("days")
		switch r.URL.Query().Get("symbol") {
		case "KO":
			w.Write([]byte(`[{"date":"2024-03-05","close":"12.5"},{"date":"2024-03-01","close":10},{"date":"2024-03-04","close":11.25}]`))
		case "BAD":
			w.Write([]byte(`{"oops":true}`))
		case "BUSY":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "EMPTY":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL+"/", WithAPIKey("secret"))
	ctx := context.Background()

	series, err := f.FetchDaily(ctx, "ko", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.PriceSeries{day(4, 11.25), day(5, 12.5)}, series)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "2", gotDays)

	all, err := f.FetchDaily(ctx, "KO", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Empty(t, gotDays)

	tests := []struct {
		symbol    string
		wantErr   error
		retryable bool
	}{
		{"MISSING", ErrNoData, false},
		{"EMPTY", ErrNoData, false},
		{"BAD", ErrMalformed, false},
		{"", ErrInvalidInput, false},
		{"BUSY", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			_, err := f.FetchDaily(ctx, tt.symbol, 2)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.retryable, IsRetryableError(err))
		})
	}
}
