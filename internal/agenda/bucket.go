package agenda

import (
	"slices"

	"dashcal/internal/model"
)

// BucketByDay groups timed events by their display date. Each bucket is
// sorted by start instant; events with equal starts keep their input order.
// Days without events have no entry.
func BucketByDay(events []model.TimedEvent) map[model.Date][]model.TimedEvent {
	buckets := make(map[model.Date][]model.TimedEvent)
	for _, ev := range events {
		buckets[ev.Day] = append(buckets[ev.Day], ev)
	}
	for _, bucket := range buckets {
		slices.SortStableFunc(bucket, func(a, b model.TimedEvent) int {
			return a.SortKey.Compare(b.SortKey)
		})
	}
	return buckets
}

// AlignToWindow returns one slice per window day, in window order. Days
// missing from buckets get an empty, non-nil slice.
func AlignToWindow(w Window, buckets map[model.Date][]model.TimedEvent) [][]model.TimedEvent {
	out := make([][]model.TimedEvent, w.Len())
	for i, day := range w.days {
		if evs, ok := buckets[day]; ok {
			out[i] = evs
			continue
		}
		out[i] = []model.TimedEvent{}
	}
	return out
}
