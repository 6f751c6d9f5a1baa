// Package cadence derives repetition statistics from a raw timestamp log.
//
// A log is the list of millisecond timestamps stored on a prime or review
// item. Logs may contain entries written by old clients or imports that are
// not numbers at all; every function here tolerates them and simply skips
// what it cannot read.
package cadence

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Log is a repetition log exactly as decoded from JSON.
type Log []any

// Buckets holds the number of repetitions since the start of the current
// day, week and month.
type Buckets struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
}

// Normalize returns the readable timestamps of raw in their original order.
func Normalize(raw Log) []int64 {
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		if ms, ok := toMillis(v); ok {
			out = append(out, ms)
		}
	}
	return out
}

func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return floatMillis(n)
	case float32:
		return floatMillis(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatMillis(f)
	case string:
		return digitMillis(n)
	default:
		return 0, false
	}
}

func floatMillis(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func digitMillis(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// Instant converts milliseconds since the Unix epoch to a UTC time.
func Instant(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Millis rounds t to the nearest millisecond since the Unix epoch.
func Millis(t time.Time) int64 {
	const half = int64(time.Millisecond / 2)
	ns := t.UnixNano()
	ms, rem := ns/int64(time.Millisecond), ns%int64(time.Millisecond)
	switch {
	case rem >= half:
		ms++
	case rem <= -half:
		ms--
	}
	return ms
}

// Latest returns the most recent readable timestamp of raw.
func Latest(raw Log) (time.Time, bool) {
	ts := Normalize(raw)
	if len(ts) == 0 {
		return time.Time{}, false
	}
	max := ts[0]
	for _, v := range ts[1:] {
		if v > max {
			max = v
		}
	}
	return Instant(max), true
}

// Earliest returns the oldest readable timestamp of raw.
func Earliest(raw Log) (time.Time, bool) {
	ts := Normalize(raw)
	if len(ts) == 0 {
		return time.Time{}, false
	}
	min := ts[0]
	for _, v := range ts[1:] {
		if v < min {
			min = v
		}
	}
	return Instant(min), true
}

// Append returns a copy of raw with now appended, along with the instant
// that was recorded.
func Append(raw Log, now time.Time) (Log, time.Time) {
	ms := Millis(now)
	out := make(Log, len(raw), len(raw)+1)
	copy(out, raw)
	out = append(out, ms)
	return out, Instant(ms)
}
