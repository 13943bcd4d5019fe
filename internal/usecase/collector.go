package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
	mid "Fractrade/internal/middleware"
	"Fractrade/internal/services/fractal"
	"Fractrade/pkg/logger"
)

// CollectorConfig tunes the ingestion pipeline.
type CollectorConfig struct {
	Symbols      []string
	Timeframes   []drepo.Timeframe
	MaxBars      int
	MinStrength  float64
	ConfirmBars  int
	Workers      int
	WorkerBuffer int
	Backfill     int // bars loaded per series on startup
}

// BarCollector pulls closed bars from the market stream, shards them into
// per-symbol workers (bars for one symbol are always processed in arrival
// order; symbols run in parallel) and drives the detection -> confirmation
// -> aggregation -> scoring -> trading chain.
type BarCollector struct {
	cfg        CollectorConfig
	stream     drepo.BarStream
	bars       drepo.BarStore
	pipe       *mid.BarPipeline
	detector   *fractal.Detector
	aggregator *Aggregator
	scorer     *Scorer
	engine     *TradeEngine
	events     drepo.EventPublisher
	metrics    drepo.Metrics
	log        *logger.Logger

	mu        sync.Mutex
	buffers   map[models.SeriesKey]*fractal.Buffer
	filters   map[models.SeriesKey]*fractal.ConfirmationFilter
	lastClose map[string]float64
	confirmed map[models.SeriesKey][]models.ConfirmedFractal

	workers []chan *models.PriceBar
	wg      sync.WaitGroup
	replay  bool // true while backfilling; no persistence or trading
}

func NewBarCollector(
	cfg CollectorConfig,
	stream drepo.BarStream,
	bars drepo.BarStore,
	pipe *mid.BarPipeline,
	detector *fractal.Detector,
	aggregator *Aggregator,
	scorer *Scorer,
	engine *TradeEngine,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
) *BarCollector {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WorkerBuffer <= 0 {
		cfg.WorkerBuffer = 256
	}
	if cfg.MaxBars <= 0 {
		cfg.MaxBars = 500
	}
	return &BarCollector{
		cfg:        cfg,
		stream:     stream,
		bars:       bars,
		pipe:       pipe,
		detector:   detector,
		aggregator: aggregator,
		scorer:     scorer,
		engine:     engine,
		events:     events,
		metrics:    metrics,
		log:        log,
		buffers:    make(map[models.SeriesKey]*fractal.Buffer),
		filters:    make(map[models.SeriesKey]*fractal.ConfirmationFilter),
		lastClose:  make(map[string]float64),
		confirmed:  make(map[models.SeriesKey][]models.ConfirmedFractal),
	}
}

// Start warms the series buffers from storage, connects the stream and
// launches the workers.
func (c *BarCollector) Start(ctx context.Context) error {
	c.backfill(ctx)

	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}

	c.workers = make([]chan *models.PriceBar, c.cfg.Workers)
	for i := range c.workers {
		ch := make(chan *models.PriceBar, c.cfg.WorkerBuffer)
		c.workers[i] = ch
		c.wg.Add(1)
		go c.work(ctx, ch)
	}

	go c.consume(ctx)
	return nil
}

// consume owns the read session. The stream's reader goroutine delivers at
// most one error and then closes both channels, so every error (and every
// channel closure) ends the session; a fresh pair of channels must be taken
// from Read after reconnecting.
func (c *BarCollector) consume(ctx context.Context) {
	barCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				barCh = nil
				if errCh == nil {
					break
				}
				continue
			}
			if bar != nil {
				c.Ingest(bar)
			}
			continue
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				if barCh == nil {
					break
				}
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
				c.log.Warn("stream error, reconnecting", logger.Error(err))
			}
		}

		// Session over. Drain bars buffered before the failure, then
		// reconnect and resume with fresh channels.
		if barCh != nil {
			for bar := range barCh {
				if bar != nil {
					c.Ingest(bar)
				}
			}
		}
		if !c.reconnect(ctx) {
			return
		}
		barCh, errCh = c.stream.Read(ctx)
	}
}

// reconnect retries with capped exponential backoff until the stream is back
// or the context ends.
func (c *BarCollector) reconnect(ctx context.Context) bool {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return false
		}
		err := c.stream.Reconnect(ctx)
		if err == nil {
			return true
		}
		c.metrics.RecordError("stream_reconnect")
		c.log.Warn("reconnect failed", logger.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// Ingest routes a bar to its symbol's worker. All timeframes of one symbol
// land on the same worker, preserving detection causality.
func (c *BarCollector) Ingest(bar *models.PriceBar) {
	if len(c.workers) == 0 {
		c.process(bar)
		return
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(bar.Symbol))
	ch := c.workers[int(h.Sum32())%len(c.workers)]
	select {
	case ch <- bar:
		return
	default:
	}

	// The worker is behind. Wait rather than drop: a hole in the series
	// would pass the next append's gap check and skew detection.
	c.metrics.RecordError("ingest_backpressure")
	t := time.NewTimer(ingestStallTimeout)
	defer t.Stop()
	select {
	case ch <- bar:
	case <-t.C:
		c.metrics.RecordError("ingest_drop")
		c.log.Error("bar dropped after stalled worker",
			logger.String("symbol", bar.Symbol),
			logger.String("tf", bar.Timeframe),
		)
	}
}

func (c *BarCollector) work(ctx context.Context, ch <-chan *models.PriceBar) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case bar := <-ch:
			if bar != nil {
				c.process(bar)
			}
		}
	}
}

// process runs one bar through the whole analytical chain.
func (c *BarCollector) process(bar *models.PriceBar) {
	start := time.Now()
	key := models.SeriesKey{Symbol: bar.Symbol, Timeframe: bar.Timeframe}

	c.mu.Lock()
	buf, ok := c.buffers[key]
	if !ok {
		buf = fractal.NewBuffer(key, c.cfg.MaxBars)
		c.buffers[key] = buf
		c.filters[key] = fractal.NewConfirmationFilter(c.cfg.MinStrength, c.cfg.ConfirmBars)
	}
	filter := c.filters[key]
	c.mu.Unlock()

	if err := buf.Append(*bar); err != nil {
		var die *models.DataIntegrityError
		if errors.As(err, &die) {
			c.metrics.RecordError("data_integrity")
			c.log.Warn("bar rejected", logger.String("series", key.String()), logger.Error(err))
			return
		}
		c.log.Error("bar append failed", logger.Error(err))
		return
	}

	c.metrics.RecordBar(bar.Symbol, bar.Timeframe)
	c.metrics.RecordLastPrice(bar.Symbol, bar.Close)
	c.mu.Lock()
	c.lastClose[bar.Symbol] = bar.Close
	c.mu.Unlock()

	if c.pipe != nil && !c.replay {
		_ = c.pipe.Process(context.Background(), bar)
	}

	// Candidates become detectable wing bars after their pivot.
	if cand, ok := c.detector.DetectAt(buf, buf.LastIndex()-c.detector.Wing()); ok {
		if opp, ok := c.detector.OppositeExtremum(buf, cand); ok {
			c.metrics.RecordCandidate(bar.Symbol, bar.Timeframe, string(cand.Type))
			filter.Submit(cand, opp)
		}
	}

	confirmed, invalidated := filter.Evaluate(buf)
	for range invalidated {
		c.metrics.RecordInvalidation(bar.Symbol, bar.Timeframe)
	}
	for _, f := range confirmed {
		c.metrics.RecordConfirmation(bar.Symbol, bar.Timeframe, string(f.Type))
		c.remember(key, f)
		c.log.Info("fractal confirmed",
			logger.String("series", key.String()),
			logger.String("type", string(f.Type)),
			logger.Float64("price", f.Price),
			logger.Float64("strength", f.Strength),
		)
		if obs := c.aggregator.Observe(f); obs != nil {
			if sig := c.scorer.Score(obs, bar.Close, time.Now()); sig != nil && !c.replay {
				c.metrics.RecordSignal(sig.Symbol, string(sig.Direction))
				if c.events != nil {
					if err := c.events.PublishSignal(context.Background(), sig); err != nil {
						c.log.Warn("signal publish failed", logger.Error(err))
					}
				}
				c.engine.OnSignal(context.Background(), sig)
			}
		}
	}

	if !c.replay {
		c.engine.OnBar(bar)
	}
	c.metrics.RecordLatency("process_bar", time.Since(start).Seconds())
}

const (
	confirmedHistoryCap = 512
	ingestStallTimeout  = 5 * time.Second
)

func (c *BarCollector) remember(key models.SeriesKey, f models.ConfirmedFractal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hist := append(c.confirmed[key], f)
	if len(hist) > confirmedHistoryCap {
		hist = hist[len(hist)-confirmedHistoryCap:]
	}
	c.confirmed[key] = hist
}

// RecentFractals returns the latest confirmed fractals for one series,
// newest first.
func (c *BarCollector) RecentFractals(symbol string, tf drepo.Timeframe, limit int) []models.ConfirmedFractal {
	key := models.SeriesKey{Symbol: symbol, Timeframe: string(tf)}
	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.confirmed[key]
	out := make([]models.ConfirmedFractal, 0, limit)
	for i := len(hist) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, hist[i])
	}
	return out
}

// LastClose returns the most recent close seen for a symbol.
func (c *BarCollector) LastClose(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.lastClose[symbol]
	return p, ok
}

// IsConnected reports the stream state for health checks.
func (c *BarCollector) IsConnected() bool { return c.stream.IsConnected() }

// backfill warms each configured series from the bar store so detection has
// history to work with immediately.
func (c *BarCollector) backfill(ctx context.Context) {
	if c.bars == nil || c.cfg.Backfill <= 0 {
		return
	}
	c.replay = true
	defer func() { c.replay = false }()
	for _, sym := range c.cfg.Symbols {
		for _, tf := range c.cfg.Timeframes {
			hist, err := c.bars.GetLatestNBars(ctx, sym, tf, c.cfg.Backfill)
			if err != nil {
				c.log.Warn("backfill failed",
					logger.String("symbol", sym),
					logger.String("tf", string(tf)),
					logger.Error(err),
				)
				continue
			}
			for i := range hist {
				bar := hist[i]
				c.process(&bar)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
