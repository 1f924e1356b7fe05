package humanfmt

import (
	"testing"
	"time"
)

func TestBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{1 << 20, "1.00 MiB"},
		{5 << 30, "5.00 GiB"},
		{2 << 40, "2.00 TiB"},
	}
	for _, c := range cases {
		if got := Bytes(c.in); got != c.want {
			t.Errorf("Bytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Microsecond, "1.5ms"},
		{2 * time.Second, "2.00s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{135 * time.Minute, "2h15m"},
		{2 * time.Hour, "2h"},
	}
	for _, c := range cases {
		if got := Duration(c.in); got != c.want {
			t.Errorf("Duration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestThroughput(t *testing.T) {
	if got := Throughput(1<<20, time.Second); got != "1.00 MiB/s" {
		t.Errorf("Throughput = %q, want 1.00 MiB/s", got)
	}
	if got := Throughput(100, 0); got != "∞" {
		t.Errorf("Throughput with zero duration = %q, want ∞", got)
	}
}

func TestCount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{999, "999"},
		{1500, "1.50K"},
		{2_000_000, "2.00M"},
		{3_000_000_000, "3.00B"},
	}
	for _, c := range cases {
		if got := Count(c.in); got != c.want {
			t.Errorf("Count(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
