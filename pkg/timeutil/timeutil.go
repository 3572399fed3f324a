// Package timeutil provides calendar helpers in India Standard Time (UTC+5:30).
// Exam dates, daily plans and the daily-hours calendar are all counted in IST
// days, whatever the timezone of the machine running the tutor.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// IST is India Standard Time (UTC+5:30, no DST).
var IST = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// Layouts used across the tutor.
const (
	FormatDate     = "2006-01-02"
	FormatDateTime = "2006-01-02 15:04"
	FormatClock    = "15:04"
)

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// Date creates midnight IST on the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, IST)
}

// StartOfDay returns 00:00 IST of the day containing t.
func StartOfDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// DaysUntil returns the signed number of IST calendar days from 'from' to 'to'.
func DaysUntil(from, to time.Time) int {
	// IST has no DST, so midnights are exactly 24h apart.
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

// DaysBetween returns the absolute number of IST days between two times.
func DaysBetween(t1, t2 time.Time) int {
	d := DaysUntil(t1, t2)
	if d < 0 {
		return -d
	}
	return d
}

// DayIndex returns how many IST days t is after start, never negative.
func DayIndex(start, t time.Time) int {
	if start.IsZero() {
		return 0
	}
	d := DaysUntil(start, t)
	if d < 0 {
		return 0
	}
	return d
}

// IsSameDay checks if two times fall on the same IST day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToIST(t1), ToIST(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ParseDate parses YYYY-MM-DD as midnight IST.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, IST)
}

// FormatDateStr formats t as an IST date.
func FormatDateStr(t time.Time) string {
	return ToIST(t).Format(FormatDate)
}

// FormatClockStr formats t as an IST wall clock.
func FormatClockStr(t time.Time) string {
	return ToIST(t).Format(FormatClock)
}

// FormatDuration renders a duration the way students read it: "1h 25m", "40m", "35s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatHours renders fractional hours: 2.5 -> "2h 30m".
func FormatHours(hours float64) string {
	return FormatDuration(time.Duration(hours * float64(time.Hour)))
}
