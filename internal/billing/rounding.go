package billing

import (
	"fmt"
	"math"
	"time"
)

// FormatHHMMSS formats d as HH:MM:SS. Hours are not wrapped at 24.
func FormatHHMMSS(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatHHMM formats d as HH:MM, dropping any seconds.
func FormatHHMM(d time.Duration) string {
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// RoundDuration rounds d to the nearest multiple of interval. Ties round
// away from zero. A non-positive interval returns d unchanged.
func RoundDuration(d, interval time.Duration) time.Duration {
	if interval <= 0 {
		return d
	}
	n := math.Round(d.Seconds() / interval.Seconds())
	return time.Duration(n) * interval
}

// Quantity turns a logged duration into an invoice line amount. Seconds
// are dropped, then with roundTo minutes set the result is rounded to
// that interval.
func Quantity(d time.Duration, roundTo int) string {
	whole := d.Truncate(time.Minute)
	if roundTo <= 0 {
		return FormatHHMM(whole)
	}
	return FormatHHMM(RoundDuration(whole, time.Duration(roundTo)*time.Minute))
}
