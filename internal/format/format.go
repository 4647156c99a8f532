// Package format renders durations and sizes for logs and error messages.
package format

import (
	"fmt"
	"time"
)

// Duration formats a media position as MM:SS or HH:MM:SS. Sub-second
// positions get a millisecond suffix (MM:SS.mmm) so segment boundaries stay
// distinguishable in logs.
func Duration(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000

	var out string
	if h > 0 {
		out = fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%02d:%02d", m, s)
	}
	if frac > 0 {
		out += fmt.Sprintf(".%03d", frac)
	}
	return out
}

// Seconds formats a duration as seconds with millisecond precision, e.g. "65.000s".
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// Size formats a size in bytes for human display, using the largest
// binary unit that keeps the value >= 1. Units above bytes get one decimal
// unless the value is whole.
func Size(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		if bytes == 1 {
			return "1 byte"
		}
		return fmt.Sprintf("%d bytes", bytes)
	}

	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(bytes) / unit
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d %s", int64(value), units[i])
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
