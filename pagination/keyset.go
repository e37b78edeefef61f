// Package pagination implements keyset ("seek") pagination over rows that are
// already sorted by a unique key.
//
// Callers fetch Probe(limit) rows past the cursor and hand them to Cut. The
// extra row only signals that another page exists; it is never returned.
package pagination

// Page is one window of a keyset-paginated listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// Probe is the number of rows to fetch for a page of the given size.
func Probe(limit int) int {
	return limit + 1
}

// Cut trims rows fetched with Probe(limit) down to a page. When a next page
// exists, NextCursor is the key of the last returned row.
func Cut[T any](rows []T, limit int, key func(T) string) Page[T] {
	if limit < 0 {
		limit = 0
	}
	if len(rows) <= limit {
		items := rows
		if items == nil {
			items = []T{}
		}
		return Page[T]{Items: items}
	}

	items := rows[:limit]
	page := Page[T]{Items: items, HasMore: true}
	if limit > 0 {
		page.NextCursor = key(items[limit-1])
	}
	return page
}
