package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
	domrepo "Fractrade/internal/domain/repository"
	xlogger "Fractrade/pkg/logger"
)

type fakeBars struct {
	rangeSymbol string
	rangeTF     domrepo.Timeframe
	rangeSince  time.Time
	rangeCalls  int
	latestCalls int
}

func (f *fakeBars) StoreBar(context.Context, *models.PriceBar) error { return nil }

func (f *fakeBars) Health(context.Context) error { return nil }

func (f *fakeBars) Close() error { return nil }

func (f *fakeBars) GetBars(_ context.Context, symbol string, tf domrepo.Timeframe, since time.Time, _ int) ([]models.PriceBar, error) {
	f.rangeCalls++
	f.rangeSymbol = symbol
	f.rangeTF = tf
	f.rangeSince = since
	return nil, nil
}

func (f *fakeBars) GetLatestNBars(context.Context, string, domrepo.Timeframe, int) ([]models.PriceBar, error) {
	f.latestCalls++
	return nil, nil
}

func barsHandler(t *testing.T, bars domrepo.BarStore) *TradingEchoHandler {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return NewTradingEchoHandler(log, nil, nil, nil, nil, bars, nil)
}

func getBars(t *testing.T, h *TradingEchoHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/bars?"+query, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Bars(e.NewContext(req, rec)))
	return rec
}

func TestBarsSinceUsesAlignedRangeQuery(t *testing.T) {
	bars := &fakeBars{}
	h := barsHandler(t, bars)

	rec := getBars(t, h, "symbol=BTC/USDT&tf=4h&since=2026-08-10T10:17:42Z")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, bars.rangeCalls)
	assert.Zero(t, bars.latestCalls)
	assert.Equal(t, "BTC/USDT", bars.rangeSymbol)
	assert.Equal(t, domrepo.TF4h, bars.rangeTF)
	assert.Equal(t, time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC), bars.rangeSince.UTC())
}

func TestBarsWithoutSinceServesLatest(t *testing.T) {
	bars := &fakeBars{}
	h := barsHandler(t, bars)

	rec := getBars(t, h, "symbol=BTC/USDT&tf=1h")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, bars.latestCalls)
	assert.Zero(t, bars.rangeCalls)
}

func TestBarsRejectsMalformedSince(t *testing.T) {
	bars := &fakeBars{}
	h := barsHandler(t, bars)

	rec := getBars(t, h, "symbol=BTC/USDT&tf=1h&since=yesterday")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, bars.rangeCalls)
	assert.Zero(t, bars.latestCalls)
}
