package market

import (
	"fmt"
	"time"

	"github.com/wonny/diamond/internal/strategyconfig"
)

// Calendar answers trading-day and session questions in the market timezone
// ⭐ SSOT: 거래일/세션/run_id 판정은 여기서만
type Calendar struct {
	loc          *time.Location
	holidays     map[string]struct{}
	sessionStart int // minutes since midnight
	sessionEnd   int
	strategyRun  int
	now          func() time.Time
}

// NewCalendar builds a Calendar from the market section
func NewCalendar(cfg strategyconfig.Market) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	start, err := parseHHMM(cfg.Session.Start)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	end, err := parseHHMM(cfg.Session.End)
	if err != nil {
		return nil, fmt.Errorf("session end: %w", err)
	}
	run, err := parseHHMM(cfg.StrategyRunTime)
	if err != nil {
		return nil, fmt.Errorf("strategy run time: %w", err)
	}

	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, d := range cfg.Holidays {
		holidays[d] = struct{}{}
	}

	return &Calendar{
		loc:          loc,
		holidays:     holidays,
		sessionStart: start,
		sessionEnd:   end,
		strategyRun:  run,
		now:          time.Now,
	}, nil
}

// WithClock replaces the wall clock (tests)
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	c.now = now
	return c
}

// Location returns the market timezone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the market timezone
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns midnight of the current market date
func (c *Calendar) Today() time.Time {
	return DateOf(c.Now())
}

// IsHoliday reports whether t's market date is a listed holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.In(c.loc).Format(DateLayout)]
	return ok
}

// IsTradingDay reports whether t's market date is a weekday and not a holiday
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	return !c.IsHoliday(local)
}

// InSession reports whether t falls in [session.start, session.end) on a trading day
func (c *Calendar) InSession(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsTradingDay(local) {
		return false
	}
	m := local.Hour()*60 + local.Minute()
	return m >= c.sessionStart && m < c.sessionEnd
}

// StrategyDue reports whether t is on a trading day at or after the strategy run time
func (c *Calendar) StrategyDue(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsTradingDay(local) {
		return false
	}
	return local.Hour()*60+local.Minute() >= c.strategyRun
}

// RecentTradingDays returns up to n trading dates within the last n calendar
// days ending at t (t first), skipping weekends and holidays.
func (c *Calendar) RecentTradingDays(t time.Time, n int) []time.Time {
	local := DateOf(t.In(c.loc))
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		d := local.AddDate(0, 0, -i)
		if c.IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// Layouts used across persisted artifacts
const (
	DateLayout  = "2006-01-02"
	RunIDLayout = "200601021504"
)

// RunID returns the minute-granular invocation id in the market timezone
func (c *Calendar) RunID(t time.Time) string {
	return t.In(c.loc).Format(RunIDLayout)
}

// DateString returns t's market date as YYYY-MM-DD
func (c *Calendar) DateString(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// DateOf truncates t to midnight in its own location
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func parseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
