package analytics

import (
	"sort"
	"time"

	"postwatch/internal/model"
)

// DailyActivity aggregates posts into per-day, per-kind buckets keyed by
// local midnight.
func DailyActivity(posts []model.Post) map[time.Time]map[model.PostKind]int {
	buckets := make(map[time.Time]map[model.PostKind]int)
	for _, p := range posts {
		t := p.CreatedAt
		key := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[model.PostKind]int)
		}
		buckets[key][p.Kind]++
	}
	return buckets
}

// SortedDays returns bucket keys in ascending order.
func SortedDays(m map[time.Time]map[model.PostKind]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
