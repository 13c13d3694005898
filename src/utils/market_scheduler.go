package utils

import (
	"fmt"
	"sync"
	"time"

	"fx-agent/src/logger"
)

// SessionScheduler resolves currency sessions for pairs and caches calendars.
type SessionScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewSessionScheduler(l *logger.Logger) *SessionScheduler {
	return &SessionScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
}

// -----------------------------------------------------------------------------

// calendarsFor returns the calendars of the pair's currencies in pair order.
// Currencies without a mapping are skipped.
func (ss *SessionScheduler) calendarsFor(pair string) []*TradingCalendar {
	var out []*TradingCalendar
	for _, ccy := range PairCurrencies(pair) {
		ss.mu.RLock()
		cal, ok := ss.Calendars[ccy]
		ss.mu.RUnlock()

		if !ok {
			var found bool
			cal, found = GetCalendar(ccy)
			if !found {
				continue
			}
			if cal.Fallback {
				ss.Logger.Warning("No exchange calendar for %s, using weekday 09:00-17:00 %s", ccy, cal.Timezone)
			}
			ss.mu.Lock()
			ss.Calendars[ccy] = cal
			ss.mu.Unlock()
		}
		out = append(out, cal)
	}
	return out
}

// -----------------------------------------------------------------------------

// SessionColumn names the open flag column of a currency.
func SessionColumn(currency string) string {
	return fmt.Sprintf("session_%s_open", currency)
}

// -----------------------------------------------------------------------------

// SessionFlags returns a 1/0 open flag per timestamp for every mapped currency
// of the pair, keyed by column name, plus the column order.
func (ss *SessionScheduler) SessionFlags(pair string, index []time.Time) ([]string, map[string][]float64) {
	cals := ss.calendarsFor(pair)
	cols := make([]string, 0, len(cals))
	out := make(map[string][]float64, len(cals))

	for _, cal := range cals {
		name := SessionColumn(cal.Currency)
		flags := make([]float64, len(index))
		for i, ts := range index {
			if cal.IsOpenOnMinute(ts) {
				flags[i] = 1
			}
		}
		cols = append(cols, name)
		out[name] = flags
	}
	return cols, out
}
