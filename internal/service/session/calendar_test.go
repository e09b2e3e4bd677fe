package session

import (
	"testing"
	"time"
)

func ist(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, IST)
}

func TestInSessionWindow(t *testing.T) {
	c := NewCalendar(Config{})

	// Monday 2026-03-02
	cases := []struct {
		at   time.Time
		want bool
	}{
		{ist(2026, time.March, 2, 9, 15), true},
		{ist(2026, time.March, 2, 12, 0), true},
		{ist(2026, time.March, 2, 15, 30), true},
		{ist(2026, time.March, 2, 9, 14), false},
		{ist(2026, time.March, 2, 15, 31), false},
		{ist(2026, time.March, 2, 3, 45), false},
	}
	for _, tc := range cases {
		if got := c.InSession(tc.at); got != tc.want {
			t.Errorf("InSession(%v)=%v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestInSessionRejectsNonTradingDays(t *testing.T) {
	c := NewCalendar(Config{})

	// Saturday / Sunday, mid-session time
	if c.InSession(ist(2026, time.March, 7, 12, 0)) {
		t.Error("Saturday accepted")
	}
	if c.InSession(ist(2026, time.March, 8, 12, 0)) {
		t.Error("Sunday accepted")
	}
	// Republic Day 2026 (Monday)
	if c.InSession(ist(2026, time.January, 26, 12, 0)) {
		t.Error("holiday accepted")
	}
}

func TestExtraHolidaysFromConfig(t *testing.T) {
	c := NewCalendar(Config{Holidays: []string{"2026-03-02"}})
	if c.IsTradingDay(ist(2026, time.March, 2, 12, 0)) {
		t.Error("configured extra holiday treated as trading day")
	}
}

func TestCandlesPerSession(t *testing.T) {
	c := NewCalendar(Config{})
	// 375-minute session
	if got := c.CandlesPerSession(5); got != 75 {
		t.Errorf("5m candles per session=%d, want 75", got)
	}
	if got := c.CandlesPerSession(60); got != 6 {
		t.Errorf("60m candles per session=%d, want 6", got)
	}
	if got := c.CandlesPerSession(0); got != 1 {
		t.Errorf("degenerate timeframe=%d, want 1", got)
	}
}

func TestSessionsForCandles(t *testing.T) {
	c := NewCalendar(Config{})
	// 210 five-minute candles at 75/session -> 3 sessions
	if got := c.SessionsForCandles(210, 5); got != 3 {
		t.Errorf("sessions=%d, want 3", got)
	}
	// 210 hourly candles at 6/session -> 35 sessions
	if got := c.SessionsForCandles(210, 60); got != 35 {
		t.Errorf("sessions=%d, want 35", got)
	}
}

func TestSessionsBackSkipsWeekend(t *testing.T) {
	c := NewCalendar(Config{})
	// Monday 2026-03-02, two sessions back crosses the weekend to Thursday.
	got := c.SessionsBack(ist(2026, time.March, 2, 12, 0), 2)
	want := ist(2026, time.February, 26, 9, 15)
	if !got.Equal(want) {
		t.Errorf("SessionsBack=%v, want %v", got, want)
	}
}

func TestSessionsBackSkipsHoliday(t *testing.T) {
	c := NewCalendar(Config{})
	// Tuesday 2026-01-27, one session back skips Republic Day (Mon 26th)
	// to Friday the 23rd.
	got := c.SessionsBack(ist(2026, time.January, 27, 12, 0), 1)
	want := ist(2026, time.January, 23, 9, 15)
	if !got.Equal(want) {
		t.Errorf("SessionsBack=%v, want %v", got, want)
	}
}

func TestStartOfSessionDay(t *testing.T) {
	c := NewCalendar(Config{})
	got := c.StartOfSessionDay(ist(2026, time.March, 2, 14, 45))
	want := ist(2026, time.March, 2, 0, 0)
	if !got.Equal(want) {
		t.Errorf("StartOfSessionDay=%v, want %v", got, want)
	}
}
