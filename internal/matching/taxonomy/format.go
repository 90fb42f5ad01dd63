package taxonomy

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatAmount renders a dollar amount compactly: $950, $25K, $1.5M.
func FormatAmount(v float64) string {
	switch {
	case v >= 1_000_000:
		return "$" + trimZero(fmt.Sprintf("%.1f", v/1_000_000)) + "M"
	case v >= 1_000:
		return "$" + trimZero(fmt.Sprintf("%.1f", v/1_000)) + "K"
	default:
		return fmt.Sprintf("$%.0f", math.Round(v))
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// FormatAmountRange renders the funding range of a grant, falling back to the
// listing's own text when no amounts are known.
func FormatAmountRange(min, max *float64, text string) string {
	switch {
	case min != nil && max != nil && *min == *max:
		return FormatAmount(*max)
	case min != nil && max != nil && *min > 0:
		return FormatAmount(*min) + " - " + FormatAmount(*max)
	case max != nil:
		return "Up to " + FormatAmount(*max)
	case min != nil:
		return "From " + FormatAmount(*min)
	case strings.TrimSpace(text) != "":
		return strings.TrimSpace(text)
	}
	return "Amount not specified"
}

// DaysUntil returns whole calendar days from now until deadline (negative when past).
func DaysUntil(deadline, now time.Time) int {
	d := truncateDay(deadline.In(time.UTC)).Sub(truncateDay(now.In(time.UTC)))
	return int(math.Round(d.Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDeadline renders a deadline relative to now. A nil deadline is rolling.
func FormatDeadline(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "Rolling deadline"
	}
	days := DaysUntil(*deadline, now)
	switch {
	case days < 0:
		return "Closed"
	case days == 0:
		return "Closes today"
	case days == 1:
		return "Closes tomorrow"
	case days <= 60:
		return fmt.Sprintf("Closes in %d days", days)
	}
	return "Closes " + deadline.Format("Jan 2, 2006")
}
