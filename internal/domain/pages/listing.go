package pages

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	recentWindow  = 7 * 24 * time.Hour
	topPagesLimit = 5
	// ExportVersion identifies the layout of ExportPayload.
	ExportVersion = "1.0"
)

// FilterPages keeps pages whose name or slug contains query, ignoring case.
func FilterPages(list []Page, query string) []Page {
	needle := strings.ToLower(strings.TrimSpace(query))
	filtered := make([]Page, 0, len(list))
	for _, page := range list {
		if needle == "" ||
			strings.Contains(strings.ToLower(page.Name), needle) ||
			strings.Contains(strings.ToLower(page.Slug), needle) {
			filtered = append(filtered, page)
		}
	}
	return filtered
}

// SortPages orders list in place according to key and returns it. Ties keep index order.
func SortPages(list []Page, key SortKey) []Page {
	var less func(a, b Page) bool
	switch ParseSortKey(string(key)) {
	case SortTimeAsc:
		less = func(a, b Page) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortViewsDesc:
		less = func(a, b Page) bool { return a.Views > b.Views }
	case SortNameAsc:
		less = func(a, b Page) bool { return compareNames(a.Name, b.Name) < 0 }
	case SortNameDesc:
		less = func(a, b Page) bool { return compareNames(a.Name, b.Name) > 0 }
	default:
		less = func(a, b Page) bool { return a.CreatedAt.After(b.CreatedAt) }
	}

	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	return list
}

// compareNames orders case-insensitively, falling back to a byte comparison.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// ComputeStats aggregates list relative to now.
func ComputeStats(list []Page, now time.Time) Stats {
	cutoff := now.Add(-recentWindow)
	stats := Stats{
		TotalPages: len(list),
		TopPages:   []TopPage{},
	}

	viewed := make([]Page, 0, len(list))
	for _, page := range list {
		stats.TotalViews += page.Views
		if page.CreatedAt.After(cutoff) {
			stats.RecentPages++
		}
		if page.LastViewedAt != nil && page.LastViewedAt.After(cutoff) {
			stats.RecentViews += page.Views
		}
		if page.Views > 0 {
			viewed = append(viewed, page)
		}
	}

	sort.SliceStable(viewed, func(i, j int) bool { return viewed[i].Views > viewed[j].Views })
	for i, page := range viewed {
		if i == topPagesLimit {
			break
		}
		stats.TopPages = append(stats.TopPages, TopPage{Name: page.Name, Slug: page.Slug, Views: page.Views})
	}

	if stats.TotalPages > 0 {
		stats.AverageViews = math.Round(float64(stats.TotalViews)/float64(stats.TotalPages)*100) / 100
	}

	return stats
}

// BuildExport snapshots list with aggregate counts.
func BuildExport(list []Page, now time.Time) ExportPayload {
	var totalViews int64
	for _, page := range list {
		totalViews += page.Views
	}

	if list == nil {
		list = []Page{}
	}

	return ExportPayload{
		ExportedAt: now.UTC(),
		Version:    ExportVersion,
		TotalPages: len(list),
		TotalViews: totalViews,
		Pages:      list,
	}
}
