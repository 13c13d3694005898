package utils

import (
	"testing"
	"time"

	"fx-agent/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	assert.Empty(t, rb.GetAll())
	_, ok := rb.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}
	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []int{3, 4, 5}, rb.GetAll())
	assert.Equal(t, []int{4, 5}, rb.GetLatest(2))
	assert.Equal(t, []int{3, 4, 5}, rb.GetLatest(10))

	last, ok := rb.Last()
	assert.True(t, ok)
	assert.Equal(t, 5, last)
}

func TestPairCurrencies(t *testing.T) {
	assert.Equal(t, []string{"USD", "JPY"}, PairCurrencies("usdjpy"))
	assert.Equal(t, []string{"EUR", "USD"}, PairCurrencies("EUR/USD"))
	assert.Nil(t, PairCurrencies("XAU"))
}

func TestGetCalendarUnknownCurrency(t *testing.T) {
	_, ok := GetCalendar("XAU")
	assert.False(t, ok)

	cal, ok := GetCalendar("usd")
	require.True(t, ok)
	assert.Equal(t, "USD", cal.Currency)
}

func TestSessionFlags(t *testing.T) {
	ss := NewSessionScheduler(logger.NewNopLogger())

	saturday := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	cols, flags := ss.SessionFlags("USDJPY", []time.Time{saturday})
	assert.Equal(t, []string{"session_USD_open", "session_JPY_open"}, cols)
	assert.Equal(t, []float64{0}, flags["session_USD_open"])
	assert.Equal(t, []float64{0}, flags["session_JPY_open"])

	// Tuesday 15:00 UTC is 10:00 in New York and midnight in Tokyo.
	tuesday := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	_, flags = ss.SessionFlags("USDJPY", []time.Time{tuesday})
	assert.Equal(t, []float64{1}, flags["session_USD_open"])
	assert.Equal(t, []float64{0}, flags["session_JPY_open"])

	cols, _ = ss.SessionFlags("XAUUSD", []time.Time{tuesday})
	assert.Equal(t, []string{"session_USD_open"}, cols)
}
