// Package session models the trading session window: which days trade
// and which minutes of those days produce valid candles. Bars outside
// the window are business-rule invalid and must never be persisted.
package session

import (
	"fmt"
	"time"
)

// IST is the exchange time zone (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Config describes the session window. Zero values fall back to the
// NSE defaults (09:15-15:30 IST).
type Config struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
	// Holidays are extra non-session dates as "2006-01-02" strings,
	// merged with the built-in exchange holiday list.
	Holidays []string
}

// Calendar answers session-window questions for a fixed exchange zone.
type Calendar struct {
	openMin  int // minutes from midnight
	closeMin int
	holidays map[string]bool
}

// NewCalendar builds a Calendar from cfg.
func NewCalendar(cfg Config) *Calendar {
	if cfg.OpenHour == 0 && cfg.OpenMinute == 0 {
		cfg.OpenHour, cfg.OpenMinute = 9, 15
	}
	if cfg.CloseHour == 0 && cfg.CloseMinute == 0 {
		cfg.CloseHour, cfg.CloseMinute = 15, 30
	}

	holidays := make(map[string]bool, len(exchangeHolidays)+len(cfg.Holidays))
	for _, d := range exchangeHolidays {
		holidays[d] = true
	}
	for _, d := range cfg.Holidays {
		holidays[d] = true
	}

	return &Calendar{
		openMin:  cfg.OpenHour*60 + cfg.OpenMinute,
		closeMin: cfg.CloseHour*60 + cfg.CloseMinute,
		holidays: holidays,
	}
}

// IsTradingDay returns true when t falls on a weekday that is not an
// exchange holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(IST)
	wd := local.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[local.Format("2006-01-02")]
}

// InSession returns true when t is on a trading day and inside the
// session window (bounds inclusive).
func (c *Calendar) InSession(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	local := t.In(IST)
	hm := local.Hour()*60 + local.Minute()
	return hm >= c.openMin && hm <= c.closeMin
}

// SessionOpen returns the session open instant on t's date.
func (c *Calendar) SessionOpen(t time.Time) time.Time {
	local := t.In(IST)
	return time.Date(local.Year(), local.Month(), local.Day(), c.openMin/60, c.openMin%60, 0, 0, IST)
}

// StartOfSessionDay returns midnight IST of t's date. This is the
// session-day boundary used for the prior-session-close lookup; it is
// deliberately local time, not UTC, so day boundaries match the exchange.
func (c *Calendar) StartOfSessionDay(t time.Time) time.Time {
	local := t.In(IST)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, IST)
}

// SessionMinutes returns the window length in minutes.
func (c *Calendar) SessionMinutes() int {
	return c.closeMin - c.openMin
}

// CandlesPerSession returns how many candles of the given minute width
// one session produces, at least 1.
func (c *Calendar) CandlesPerSession(tfMinutes int) int {
	if tfMinutes <= 0 {
		return 1
	}
	n := c.SessionMinutes() / tfMinutes
	if n < 1 {
		return 1
	}
	return n
}

// SessionsBack walks back n trading days from t and returns the session
// open of the day it lands on. n=0 returns t's own session open.
func (c *Calendar) SessionsBack(t time.Time, n int) time.Time {
	d := t.In(IST)
	// step onto a trading day first
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	for i := 0; i < n; i++ {
		d = d.AddDate(0, 0, -1)
		for !c.IsTradingDay(d) {
			d = d.AddDate(0, 0, -1)
		}
	}
	return c.SessionOpen(d)
}

// SessionsForCandles returns how many sessions must be fetched to cover
// count candles of the given width (ceiling division).
func (c *Calendar) SessionsForCandles(count, tfMinutes int) int {
	per := c.CandlesPerSession(tfMinutes)
	return (count + per - 1) / per
}

// Describe returns a human-readable window description for logs.
func (c *Calendar) Describe() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d IST", c.openMin/60, c.openMin%60, c.closeMin/60, c.closeMin%60)
}
