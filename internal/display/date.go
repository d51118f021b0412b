// ABOUTME: Human-readable timestamps for the CLI
// ABOUTME: Formats as DD/MM/YYYY HH:mm on a 24-hour clock

package display

import "time"

// DateLayout is the day-first, 24-hour layout used for message timestamps.
const DateLayout = "02/01/2006 15:04"

// FormatDate formats t in the local time zone. The zero time formats as "".
func FormatDate(t time.Time) string {
	return FormatDateIn(t, time.Local)
}

// FormatDateIn formats t in loc. The zero time formats as "".
func FormatDateIn(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
