package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
	"Fractrade/internal/services/fractal"
	"Fractrade/pkg/logger"
)

// flakyStream follows the exchange stream's session contract: the reader
// delivers at most one error, closes both channels, and expects the consumer
// to reconnect and call Read again for a fresh session.
type flakyStream struct {
	readCalls  atomic.Int32
	reconnects atomic.Int32
	bar        *models.PriceBar
}

func (s *flakyStream) Connect(context.Context) error   { return nil }
func (s *flakyStream) Subscribe(context.Context) error { return nil }
func (s *flakyStream) Close() error                    { return nil }
func (s *flakyStream) IsConnected() bool               { return true }

func (s *flakyStream) Reconnect(context.Context) error {
	s.reconnects.Add(1)
	return nil
}

func (s *flakyStream) Read(context.Context) (<-chan *models.PriceBar, <-chan error) {
	bars := make(chan *models.PriceBar, 1)
	errs := make(chan error, 1)
	if s.readCalls.Add(1) == 1 {
		errs <- errors.New("connection reset by peer")
		close(bars)
		close(errs)
		return bars, errs
	}
	bars <- s.bar
	return bars, errs
}

func testCollector(t *testing.T, stream drepo.BarStream) *BarCollector {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	detector, err := fractal.NewDetector(5)
	require.NoError(t, err)
	tfs := []drepo.Timeframe{drepo.TF1h}
	engine := testEngine(t, newFakeGateway(nil, nil), testBook())
	cfg := CollectorConfig{
		MaxBars:     16,
		MinStrength: 1.5,
		ConfirmBars: 2,
	}
	return NewBarCollector(cfg, stream, nil, nil, detector,
		NewAggregator(tfs), NewScorer(tfs, 0.5), engine, nil, drepo.NopMetrics{}, log)
}

func TestConsumeResumesReadingAfterReconnect(t *testing.T) {
	stream := &flakyStream{bar: &models.PriceBar{
		Symbol:    "BTC/USDT",
		Timeframe: "1h",
		Timestamp: time.Now().UTC().Truncate(time.Hour),
		Open:      100, High: 101, Low: 99, Close: 100.5, Volume: 10,
	}}
	c := testCollector(t, stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	require.Eventually(t, func() bool {
		_, ok := c.LastClose("BTC/USDT")
		return ok
	}, 2*time.Second, 10*time.Millisecond,
		"no bar processed after the stream session ended")

	require.GreaterOrEqual(t, stream.reconnects.Load(), int32(1))
	require.GreaterOrEqual(t, stream.readCalls.Load(), int32(2),
		"a reconnected session needs fresh channels from Read")
}

func TestIngestBlocksOnFullWorkerInsteadOfDropping(t *testing.T) {
	c := testCollector(t, &flakyStream{})
	ch := make(chan *models.PriceBar, 1)
	c.workers = []chan *models.PriceBar{ch}

	first := &models.PriceBar{Symbol: "BTC/USDT", Timeframe: "1h", Close: 1}
	second := &models.PriceBar{Symbol: "BTC/USDT", Timeframe: "1h", Close: 2}
	c.Ingest(first)

	done := make(chan struct{})
	go func() {
		c.Ingest(second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Ingest returned while the worker channel was full")
	case <-time.After(50 * time.Millisecond):
	}

	require.Same(t, first, <-ch)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Ingest did not complete once the worker drained")
	}
	require.Same(t, second, <-ch)
}
