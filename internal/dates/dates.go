package dates

import (
	"fmt"
	"strings"
	"time"
)

// Accepted calendar-date layouts. Day and month in the dotted form may be
// written without a leading zero.
const (
	layoutDotted   = "2.1.2006"
	layoutISO      = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04"
)

// Initial reminders fire a week before the due date, at this hour.
const (
	reminderLeadDays = 7
	reminderHour     = 9
)

// ParseDate normalizes a date in either 15.07.2025 or 2025-07-15 form to
// midnight in loc. Anything else is rejected.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{layoutDotted, layoutISO} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", raw)
}

// ParseDateTime parses an explicit reminder timestamp, e.g. 2025-07-20 14:30.
func ParseDateTime(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layoutDateTime, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported datetime format %q", raw)
	}
	return t, nil
}

// FormatDate renders a date in the canonical 2025-07-15 form.
func FormatDate(t time.Time) string {
	return t.Format(layoutISO)
}

// InitialReminder computes the first reminder for a freshly created task:
// seven days before the due date at 09:00. A value already in the past is
// fine; it fires on the next scheduled pass.
func InitialReminder(endDate time.Time) time.Time {
	day := endDate.AddDate(0, 0, -reminderLeadDays)
	return time.Date(day.Year(), day.Month(), day.Day(), reminderHour, 0, 0, 0, endDate.Location())
}
