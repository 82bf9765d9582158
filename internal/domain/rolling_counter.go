package domain

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the bucket key format. Keys compare lexically in date order.
const DateLayout = "2006-01-02"

// WindowDays are the rolling window lengths kept for every engagement metric.
var WindowDays = []int{7, 15, 30}

// DateKey returns the UTC day bucket key for t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RollingCounter keeps per-day counts for a trailing window of Days days.
type RollingCounter struct {
	Days    int              `json:"days"`
	Buckets map[string]int64 `json:"buckets"`
}

func NewRollingCounter(days int, today time.Time) RollingCounter {
	return RollingCounter{
		Days:    days,
		Buckets: map[string]int64{DateKey(today): 0},
	}
}

// Bump adds n to the bucket for date.
func (c *RollingCounter) Bump(date time.Time, n int64) {
	if c.Buckets == nil {
		c.Buckets = make(map[string]int64)
	}
	c.Buckets[DateKey(date)] += n
}

// EvictBefore removes every bucket dated strictly before date.
func (c *RollingCounter) EvictBefore(date time.Time) {
	cutoff := DateKey(date)
	for k := range c.Buckets {
		if k < cutoff {
			delete(c.Buckets, k)
		}
	}
}

// WindowStart is the oldest day still inside the window ending at now.
// The window holds exactly Days buckets, today included.
func (c *RollingCounter) WindowStart(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, -(c.Days - 1))
}

// Record bumps today's bucket and evicts buckets that fell out of the window.
func (c *RollingCounter) Record(now time.Time, n int64) {
	c.Bump(now, n)
	c.EvictBefore(c.WindowStart(now))
}

// History is the set of rolling windows for one metric, stored as a json column.
type History []RollingCounter

// NewHistory seeds one counter per window length with today's bucket at zero.
func NewHistory(now time.Time) History {
	h := make(History, 0, len(WindowDays))
	for _, d := range WindowDays {
		h = append(h, NewRollingCounter(d, now))
	}
	return h
}

// Window returns the counter for the given length, or nil.
func (h History) Window(days int) *RollingCounter {
	for i := range h {
		if h[i].Days == days {
			return &h[i]
		}
	}
	return nil
}

// Record applies one event at now to every window. Missing windows are added.
func (h *History) Record(now time.Time, n int64) {
	for _, d := range WindowDays {
		if h.Window(d) == nil {
			*h = append(*h, RollingCounter{Days: d, Buckets: map[string]int64{}})
		}
	}
	for i := range *h {
		(*h)[i].Record(now, n)
	}
}

func (h *History) Scan(value interface{}) error {
	out, err := scanJSONColumn[[]RollingCounter](value)
	if err != nil {
		return err
	}
	*h = out
	return nil
}

func (h History) Value() (driver.Value, error) {
	if h == nil {
		h = History{}
	}
	return datatypes.NewJSONType([]RollingCounter(h)).Value()
}
