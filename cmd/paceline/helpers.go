package main

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

func formatDistance(meters float64) string {
	return numberPrinter.Sprintf("%.1f km", meters/1000)
}

func formatCount(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

func formatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// formatStartDate trims a stored timestamp down to its calendar date. The
// raw value is returned unchanged when it does not parse, which happens for
// ledger rows whose date column was already malformed in the export.
func formatStartDate(value string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}
