package fractal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
)

var testKey = models.SeriesKey{Symbol: "BTC/USDT", Timeframe: "1h"}

func barAt(ts time.Time, o, h, l, c float64) models.PriceBar {
	return models.PriceBar{
		Symbol: testKey.Symbol, Timeframe: testKey.Timeframe,
		Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 1,
	}
}

func TestBufferAppendOrdering(t *testing.T) {
	b := NewBuffer(testKey, 10)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, b.Append(barAt(t0, 1, 2, 0.5, 1.5)))
	require.NoError(t, b.Append(barAt(t0.Add(time.Hour), 1, 2, 0.5, 1.5)))

	err := b.Append(barAt(t0.Add(30*time.Minute), 1, 2, 0.5, 1.5))
	require.Error(t, err)
	var die *models.DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.Equal(t, testKey, die.Series)
	assert.Equal(t, 2, b.Len())
}

func TestBufferDuplicateTimestampOverwrites(t *testing.T) {
	b := NewBuffer(testKey, 10)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, b.Append(barAt(t0, 1, 2, 0.5, 1.5)))
	require.NoError(t, b.Append(barAt(t0, 1, 3, 0.5, 2.5)))

	assert.Equal(t, 1, b.Len())
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.High)
}

func TestBufferTrimKeepsAbsoluteIndices(t *testing.T) {
	b := NewBuffer(testKey, 3)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(barAt(t0.Add(time.Duration(i)*time.Hour), 1, 2, 0.5, float64(i))))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.FirstIndex())
	assert.Equal(t, 4, b.LastIndex())

	_, ok := b.At(1)
	assert.False(t, ok, "trimmed index must not resolve")
	bar, ok := b.At(4)
	require.True(t, ok)
	assert.Equal(t, 4.0, bar.Close)
}
