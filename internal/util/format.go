package util

import (
	"fmt"
	"time"
)

// Sizeify renders a byte count with the largest binary unit that keeps
// the value at or above one, the way list and add report path and
// archive sizes.
func Sizeify(n int64) string {
	switch {
	case n >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(n)/TiB)
	case n >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(n)/GiB)
	case n >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(n)/MiB)
	case n >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(n)/KiB)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Statify reports progress through a long add or extract: the completed
// fraction in [0,1], the read throughput in MiB/s, and an "HH:MM:SS"
// estimate of the time remaining, extrapolated from the average speed
// since start.
func Statify(done, total int64, start time.Time) (float32, float64, string) {
	if total <= 0 {
		return 0, 0, Timeify(0)
	}
	frac := float64(done) / float64(total)
	if frac > 1 {
		frac = 1
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || done <= 0 {
		return float32(frac), 0, Timeify(0)
	}
	speed := float64(done) / elapsed / MiB
	remaining := int(float64(total-done) * elapsed / float64(done))
	return float32(frac), speed, Timeify(remaining)
}

// Timeify renders a second count as "HH:MM:SS".
func Timeify(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
