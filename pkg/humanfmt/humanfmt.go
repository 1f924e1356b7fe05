// Package humanfmt formats byte counts, durations, rates, and plain
// counts for human eyes. Used for the companion fields emitted in
// pretty logging mode.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

type unit struct {
	factor float64
	suffix string
}

// Binary (IEC) units for bytes.
var byteUnits = []unit{
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b int64) string {
	f := float64(b)
	for _, u := range byteUnits {
		if f >= u.factor {
			return fmt.Sprintf("%.2f %s", f/u.factor, u.suffix)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// Throughput formats bytes per duration as a rate, e.g. "12.3 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	perSec := float64(bytes) / d.Seconds()
	for _, u := range byteUnits {
		if perSec >= u.factor {
			return fmt.Sprintf("%.2f %s/s", perSec/u.factor, u.suffix)
		}
	}
	return fmt.Sprintf("%.0f B/s", perSec)
}

// Duration formats a duration compactly: "1.23s", "45.6ms", "1m30s", "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		h := d / time.Hour
		if m := (d % time.Hour) / time.Minute; m != 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	case d >= time.Minute:
		m := d / time.Minute
		if s := (d % time.Minute) / time.Second; s != 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Count formats a count with SI-style suffixes: "1.23M", "456.00K", "789".
func Count(n int64) string {
	const (
		thousand = 1000
		million  = 1000 * thousand
		billion  = 1000 * million
	)
	switch {
	case n >= billion:
		return fmt.Sprintf("%.2fB", float64(n)/billion)
	case n >= million:
		return fmt.Sprintf("%.2fM", float64(n)/million)
	case n >= thousand:
		return fmt.Sprintf("%.2fK", float64(n)/thousand)
	default:
		return strconv.FormatInt(n, 10)
	}
}
