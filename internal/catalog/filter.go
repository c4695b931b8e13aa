package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
)

// Filter is the shop page's query string.
type Filter struct {
	Page          int
	Search        string
	CollectionIDs []string
	PriceMin      *int64
	PriceMax      *int64
	Sort          domain.ProductsSort
}

// ParseFilter reads a shop query string. Anything unparsable falls back to
// its default: page 1, no price bound, newest first.
func ParseFilter(v url.Values) Filter {
	f := Filter{
		Page:   1,
		Search: strings.TrimSpace(v.Get("q")),
		Sort:   domain.SortLastUpdated,
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p > 0 {
		f.Page = p
	}
	for _, id := range v["collection"] {
		if id = strings.TrimSpace(id); id != "" {
			f.CollectionIDs = append(f.CollectionIDs, id)
		}
	}
	f.PriceMin = parsePrice(v.Get("price_min"))
	f.PriceMax = parsePrice(v.Get("price_max"))
	switch s := domain.ProductsSort(v.Get("sort")); s {
	case domain.SortPriceAsc, domain.SortPriceDesc:
		f.Sort = s
	}
	return f
}

// parsePrice treats zero like an absent bound.
func parsePrice(s string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// Query turns the filter into a platform query for one page.
func (f Filter) Query(pageSize int) domain.ProductsQuery {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return domain.ProductsQuery{
		Search:        f.Search,
		CollectionIDs: f.CollectionIDs,
		PriceRange:    domain.PriceRange{Min: f.PriceMin, Max: f.PriceMax},
		Sort:          f.Sort,
		Skip:          (page - 1) * pageSize,
		Limit:         pageSize,
	}
}
