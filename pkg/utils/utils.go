// pkg/utils/utils.go
package utils

import (
	"fmt"
	"time"
)

// FormatDuration форматирует продолжительность в читаемый вид
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatPercent форматирует процентное значение со знаком
func FormatPercent(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// PercentChange изменение to относительно from в процентах, 0 при from == 0
func PercentChange(from, to int64) float64 {
	if from == 0 {
		return 0
	}
	return float64(to-from) / float64(from) * 100
}

// FormatRelativeTime форматирует t относительно now
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < 0:
		return t.UTC().Format(time.DateTime)
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return t.UTC().Format(time.DateTime)
}
