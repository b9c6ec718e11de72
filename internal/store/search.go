package store

import (
	"sort"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

// FilterRestaurants returns the restaurants matching both query and
// cuisine.  query matches case-insensitively as a substring of the name
// or the description; cuisine must equal the restaurant's cuisine
// exactly.  Empty values match everything.  list is not modified.
func FilterRestaurants(list []model.Restaurant, query, cuisine string) []model.Restaurant {
	q := strings.ToLower(query)
	out := make([]model.Restaurant, 0, len(list))
	for _, r := range list {
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			continue
		}
		if cuisine != "" && r.Cuisine != cuisine {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Cuisines returns the distinct non-empty cuisines in list, sorted.
func Cuisines(list []model.Restaurant) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0)
	for _, r := range list {
		if r.Cuisine == "" {
			continue
		}
		if _, ok := seen[r.Cuisine]; ok {
			continue
		}
		seen[r.Cuisine] = struct{}{}
		out = append(out, r.Cuisine)
	}
	sort.Strings(out)
	return out
}
