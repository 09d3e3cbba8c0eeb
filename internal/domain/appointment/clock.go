package appointment

import (
	"encoding/json"
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// ClockTime is a time of day in minutes after midnight. 24:00 (1440) is a
// valid end of range.
type ClockTime int

func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

const clockLayout = "15:04"

// ParseClock accepts exactly HH:MM. 24:00 is the only value past 23:59.
func ParseClock(s string) (ClockTime, error) {
	if s == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil || len(s) != len(clockLayout) {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c <= minutesPerDay
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start ClockTime `gorm:"column:start_minute;type:smallint;not null" json:"start"`
	End   ClockTime `gorm:"column:end_minute;type:smallint;not null" json:"end"`
}

func (r TimeRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return ErrInvalidTimeRange
	}
	if r.End <= r.Start {
		return ErrInvalidTimeRange
	}
	return nil
}

// Overlaps uses half-open semantics: a range ending at 09:30 does not
// overlap one starting at 09:30.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && r.End > o.Start
}

func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.End-r.Start) * time.Minute
}

func (r TimeRange) String() string {
	return "[" + r.Start.String() + "," + r.End.String() + ")"
}

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar day in t's own location, returned as
// UTC midnight so dates compare with ==.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
