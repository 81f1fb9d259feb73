package service

import (
	"sort"
	"time"

	"telehealth-scheduler/internal/model"
)

// Lookahead is how early a meeting counts as current.
const Lookahead = 5 * time.Minute

type Buckets struct {
	Upcoming []model.Meeting
	Current  []model.Meeting
	Past     []model.Meeting
}

func (b Buckets) Len() int { return len(b.Upcoming) + len(b.Current) + len(b.Past) }

// Classify splits meetings relative to now:
//
//	upcoming: start >= now+Lookahead
//	current:  start <  now+Lookahead and end >= now
//	past:     end   <  now
//
// Every meeting lands in exactly one bucket. Buckets are ascending by start,
// equal starts keep input order.
func Classify(meetings []model.Meeting, now time.Time) Buckets {
	sorted := make([]model.Meeting, len(meetings))
	copy(sorted, meetings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	edge := now.Add(Lookahead)
	var b Buckets
	for _, m := range sorted {
		switch {
		case m.EndTime.Before(now):
			b.Past = append(b.Past, m)
		case m.StartTime.Before(edge):
			b.Current = append(b.Current, m)
		default:
			b.Upcoming = append(b.Upcoming, m)
		}
	}
	return b
}
