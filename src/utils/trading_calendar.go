package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// currencyMIC maps a currency to the exchange whose session stands in for its
// local trading hours.
var currencyMIC = map[string]string{
	"USD": "xnys",
	"JPY": "xtks",
	"EUR": "xfra",
	"GBP": "xlon",
	"AUD": "xasx",
	"CAD": "xtse",
	"CHF": "xswx",
	"HKD": "xhkg",
}

// currencyZone is used when the exchange calendar cannot be loaded.
var currencyZone = map[string]string{
	"USD": "America/New_York",
	"JPY": "Asia/Tokyo",
	"EUR": "Europe/Berlin",
	"GBP": "Europe/London",
	"AUD": "Australia/Sydney",
	"CAD": "America/Toronto",
	"CHF": "Europe/Zurich",
	"HKD": "Asia/Hong_Kong",
}

// TradingCalendar answers session questions for one currency.
type TradingCalendar struct {
	Currency string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar returns the calendar of a currency, or false when the currency
// has no session mapping.
func GetCalendar(currency string) (*TradingCalendar, bool) {
	currency = strings.ToUpper(currency)
	mic, ok := currencyMIC[currency]
	if !ok {
		return nil, false
	}

	if cal := calendar.GetCalendar(mic); cal != nil {
		return &TradingCalendar{Currency: currency, Calendar: cal, Timezone: cal.Loc}, true
	}

	// Simple fallback: Mon-Fri 09:00-17:00 local time
	loc, err := time.LoadLocation(currencyZone[currency])
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{Currency: currency, Fallback: true, Timezone: loc}, true
}

// -----------------------------------------------------------------------------

// PairCurrencies splits a six letter pair such as USDJPY into base and quote.
func PairCurrencies(pair string) []string {
	pair = strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	if len(pair) != 6 {
		return nil
	}
	return []string{pair[:3], pair[3:]}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the session is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour := t.Hour()
		return hour >= 9 && hour < 17
	}

	return tc.Calendar.IsOpen(t)
}
