package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	got, ok := ParseTime("2026-08-10T10:10:10Z")
	require.True(t, ok)
	assert.Equal(t, "2026-08-10T10:10:10Z", got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnixSeconds(t *testing.T) {
	ts := time.Date(2026, 8, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-time", "-5"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, "input %q", s)
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2026, 8, 10, 10, 17, 42, 0, time.UTC)
	to := time.Date(2026, 8, 10, 15, 3, 9, 0, time.UTC)

	gotFrom, gotTo := AlignFromTo(from, to, "4h")
	assert.Equal(t, time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC), gotTo)

	gotFrom, gotTo = AlignFromTo(from, to, "1h")
	assert.Equal(t, time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC), gotTo)
}
