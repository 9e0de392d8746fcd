package pagination

// Pagination is the offset window accepted by list endpoints.
type Pagination struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// Clamp applies the default and maximum limit and floors the offset at zero.
func (p Pagination) Clamp(defaultLimit, maxLimit int) Pagination {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageInfo describes the window returned alongside a listing.
type PageInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// Trim drops the look-ahead row fetched with Limit+1 and reports whether more
// rows exist.
func Trim[T any](rows []T, page Pagination) ([]T, PageInfo) {
	hasMore := false
	if page.Limit > 0 && len(rows) > page.Limit {
		rows = rows[:page.Limit]
		hasMore = true
	}
	return rows, PageInfo{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Count:   len(rows),
		HasMore: hasMore,
	}
}
