package util

import (
    "strconv"
    "time"
)

var dateLayouts = []string{
    "2006-01-02",
    "2006-01-02 15:04:05",
    time.RFC3339,
    time.RFC3339Nano,
}

// ParseDate tries calendar dates, timestamps, and unix seconds. The result is truncated to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range dateLayouts {
        if t, err := time.Parse(layout, s); err == nil {
            return Day(t), true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return Day(time.Unix(ts, 0).UTC()), true
    }
    return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
    if t, ok := ParseDate(s); ok {
        return t
    }
    return def
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarQuarter returns the calendar year and quarter (1..4) of t.
func CalendarQuarter(t time.Time) (year, quarter int) {
    return t.Year(), (int(t.Month())-1)/3 + 1
}
