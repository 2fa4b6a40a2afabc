package apiclient

import (
	"sort"
	"strings"

	"github.com/jrsteele09/go-sink-client/sinkmodel"
)

// FilterPosts keeps the posts whose title, content or author contains query,
// ignoring case. An empty query keeps everything.
func FilterPosts(posts []sinkmodel.Post, query string) []sinkmodel.Post {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return posts
	}
	filtered := make([]sinkmodel.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Content), query) ||
			strings.Contains(strings.ToLower(p.Author()), query) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortPosts returns a sorted copy of posts. by is "createdAt" (default), "title"
// or "comments"; order is "asc" or "desc" (default).
func SortPosts(posts []sinkmodel.Post, by, order string) []sinkmodel.Post {
	sorted := append([]sinkmodel.Post(nil), posts...)
	desc := !strings.EqualFold(order, "asc")
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if desc {
			a, b = b, a
		}
		switch strings.ToLower(by) {
		case "title":
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case "comments":
			return len(a.Comments) < len(b.Comments)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return sorted
}
