package risk

import (
	"sync"
	"time"

	"Fractrade/internal/domain/models"
	"Fractrade/internal/domain/repository"
)

// Saver receives state snapshots for asynchronous persistence; the in-memory
// state stays authoritative whether or not the save lands.
type Saver interface {
	EnqueueRiskState(st models.RiskState)
}

// Book is the single owner of the process-wide RiskState. Every
// read-then-write runs under one mutex, so concurrent signal evaluations can
// never both pass the position cap. PENDING trades hold a reservation that
// counts against the cap until the gateway resolves them.
type Book struct {
	mu       sync.Mutex
	st       models.RiskState
	reserved int

	limits  Limits
	saver   Saver
	metrics repository.Metrics
}

// NewBook seeds a book from a loaded snapshot, or from the starting equity
// when no snapshot exists.
func NewBook(limits Limits, loaded *models.RiskState, startingEquity float64, saver Saver, metrics repository.Metrics) *Book {
	st := loaded
	if st == nil {
		st = models.NewRiskState(startingEquity, time.Now())
	}
	return &Book{st: *st, limits: limits, saver: saver, metrics: metrics}
}

// Snapshot returns a copy of the current state.
func (b *Book) Snapshot() models.RiskState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

// Limits returns the configured risk limits.
func (b *Book) Limits() Limits { return b.limits }

// Reserve atomically evaluates a proposed entry against the state with all
// outstanding reservations counted as open, and takes a reservation when
// approved. This is the only path to an approved decision.
func (b *Book) Reserve(side models.TradeSide, entry float64, now time.Time) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.st.RollDay(now)
	view := b.st
	view.OpenPositions += b.reserved

	dec := Evaluate(b.limits, view, side, entry)
	if dec.Approved {
		b.reserved++
	}
	return dec
}

// CommitOpen converts a reservation into an open position (PENDING -> OPEN).
func (b *Book) CommitOpen(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reserved > 0 {
		b.reserved--
	}
	b.st.OpenPositions++
	b.st.UpdatedAt = now
	b.publish()
}

// Release drops a reservation without opening (PENDING -> CANCELLED).
func (b *Book) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reserved > 0 {
		b.reserved--
	}
}

// ApplyClose books the realized PnL of a closed trade and recomputes the
// aggregate figures as one critical section.
func (b *Book) ApplyClose(pnl float64, now time.Time) models.RiskState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.st.RollDay(now)
	b.st.ApplyPnL(pnl, now)
	if b.st.OpenPositions > 0 {
		b.st.OpenPositions--
	}
	b.publish()
	return b.st
}

// publish pushes the state to metrics and the persistence queue. Caller
// holds the lock.
func (b *Book) publish() {
	if b.metrics != nil {
		b.metrics.RecordRiskState(b.st.Equity, b.st.DailyPnL, b.st.DrawdownPct, b.st.OpenPositions)
	}
	if b.saver != nil {
		b.saver.EnqueueRiskState(b.st)
	}
}
