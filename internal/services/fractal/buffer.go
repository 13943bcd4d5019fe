package fractal

import (
	"Fractrade/internal/domain/models"
)

// Buffer is an append-only rolling window of bars for one (symbol,
// timeframe) series. Bars are strictly ordered by timestamp; indices are
// absolute (they survive trimming of the window head), so candidate
// identities stay stable on replay.
type Buffer struct {
	key     models.SeriesKey
	maxBars int
	bars    []models.PriceBar
	base    int // absolute index of bars[0]
}

// NewBuffer creates a buffer keeping at most maxBars bars.
func NewBuffer(key models.SeriesKey, maxBars int) *Buffer {
	if maxBars <= 0 {
		maxBars = 500
	}
	return &Buffer{key: key, maxBars: maxBars, bars: make([]models.PriceBar, 0, maxBars)}
}

func (b *Buffer) Key() models.SeriesKey { return b.key }

// Len returns the number of bars currently held.
func (b *Buffer) Len() int { return len(b.bars) }

// FirstIndex returns the absolute index of the oldest held bar.
func (b *Buffer) FirstIndex() int { return b.base }

// LastIndex returns the absolute index of the newest bar, or -1 when empty.
func (b *Buffer) LastIndex() int { return b.base + len(b.bars) - 1 }

// At returns the bar at absolute index i.
func (b *Buffer) At(i int) (models.PriceBar, bool) {
	rel := i - b.base
	if rel < 0 || rel >= len(b.bars) {
		return models.PriceBar{}, false
	}
	return b.bars[rel], true
}

// Last returns the newest bar.
func (b *Buffer) Last() (models.PriceBar, bool) {
	if len(b.bars) == 0 {
		return models.PriceBar{}, false
	}
	return b.bars[len(b.bars)-1], true
}

// Append adds a bar to the series. A bar matching the last timestamp
// overwrites in place (last write wins); an older timestamp is rejected with
// a DataIntegrityError and the series is left untouched.
func (b *Buffer) Append(bar models.PriceBar) error {
	if last, ok := b.Last(); ok {
		if bar.Timestamp.Equal(last.Timestamp) {
			b.bars[len(b.bars)-1] = bar
			return nil
		}
		if bar.Timestamp.Before(last.Timestamp) {
			return &models.DataIntegrityError{
				Series: b.key,
				Reason: "bar timestamp " + bar.Timestamp.UTC().String() + " not after last " + last.Timestamp.UTC().String(),
			}
		}
	}
	b.bars = append(b.bars, bar)
	if len(b.bars) > b.maxBars {
		drop := len(b.bars) - b.maxBars
		b.bars = b.bars[drop:]
		b.base += drop
	}
	return nil
}
