package catalog

// PageLink is one entry of a pagination bar. Ellipsis entries carry no page.
type PageLink struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

type Pagination struct {
	Previous int        `json:"previous,omitempty"`
	Next     int        `json:"next,omitempty"`
	Links    []PageLink `json:"links"`
}

// Paginate builds the pagination bar for current out of total pages: the
// first and last page, every page within two of current, and an ellipsis
// where pages are skipped. It returns nil when there is a single page.
func Paginate(current, total int) *Pagination {
	if total <= 1 {
		return nil
	}
	p := &Pagination{}
	if current > 1 {
		p.Previous = current - 1
	}
	if current < total {
		p.Next = current + 1
	}
	for page := 1; page <= total; page++ {
		edge := page == 1 || page == total
		near := abs(current-page) <= 2
		if !edge && !near {
			if page == 2 || page == total-1 {
				p.Links = append(p.Links, PageLink{Ellipsis: true})
			}
			continue
		}
		p.Links = append(p.Links, PageLink{Page: page, Current: page == current})
	}
	return p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
