package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Fractrade/internal/domain/models"
	domrepo "Fractrade/internal/domain/repository"
)

// BarPipeline sits between the collector and bar storage. It validates
// bars, forwards them downstream, and buffers them when storage is
// unavailable, flushing in the background with capped exponential backoff.
// Storage hiccups therefore never stall detection.
type BarPipeline struct {
	store   domrepo.BarStore
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.PriceBar
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*BarPipeline)

// WithBufferSize sets the holding buffer size used while storage is down.
func WithBufferSize(n int) PipelineOption {
	return func(p *BarPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewBarPipeline(store domrepo.BarStore, metrics domrepo.Metrics, opts ...PipelineOption) *BarPipeline {
	p := &BarPipeline{
		store:   store,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PriceBar, p.bufSize)
	return p
}

// Start launches background flushing of buffered bars.
func (p *BarPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case bar := <-p.bufCh:
				if bar == nil {
					continue
				}
				if err := p.store.StoreBar(ctx, bar); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- bar:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *BarPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and stores a bar, buffering it on storage errors.
func (p *BarPipeline) Process(ctx context.Context, bar *models.PriceBar) error {
	start := time.Now()
	if err := validateBar(bar); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.store.StoreBar(ctx, bar); err != nil {
		p.metrics.RecordError("pipeline_store")
		select {
		case p.bufCh <- bar:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline store: %w", err)
	}
	p.metrics.RecordLatency("pipeline_store", time.Since(start).Seconds())
	return nil
}

func validateBar(bar *models.PriceBar) error {
	if bar == nil {
		return fmt.Errorf("bar nil")
	}
	if bar.Symbol == "" || bar.Timeframe == "" {
		return fmt.Errorf("series key empty")
	}
	if bar.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if bar.High < bar.Low || bar.Open < 0 || bar.Close < 0 || bar.Volume < 0 {
		return fmt.Errorf("malformed ohlcv")
	}
	return nil
}
