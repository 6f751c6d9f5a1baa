package cadence

import "time"

// Bounds returns the start of the day, week and month containing ref, in
// ref's location. Weeks start on Sunday.
func Bounds(ref time.Time) (day, week, month time.Time) {
	loc := ref.Location()
	day = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	// Monday=0 .. Sunday=6, so a Sunday steps back zero days.
	mondayIndex := (int(day.Weekday()) + 6) % 7
	back := (mondayIndex + 1) % 7
	week = time.Date(day.Year(), day.Month(), day.Day()-back, 0, 0, 0, 0, loc)

	month = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	return day, week, month
}

// Count buckets the readable timestamps of raw relative to ref.
func Count(raw Log, ref time.Time) Buckets {
	day, week, month := Bounds(ref)
	dayMs, weekMs, monthMs := day.UnixMilli(), week.UnixMilli(), month.UnixMilli()

	var b Buckets
	for _, ms := range Normalize(raw) {
		if ms >= dayMs {
			b.Today++
		}
		if ms >= weekMs {
			b.Week++
		}
		if ms >= monthMs {
			b.Month++
		}
	}
	return b
}
