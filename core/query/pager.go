package query

// Pager does the offset arithmetic of a paginated result window.
type Pager struct {
	Limit  int
	Offset int
	Total  int
}

// Clamp keeps Offset inside [0, Total). Paging past the end lands on the start of the last page
// (20 for 23 rows by 10), not on Total-Limit, so the window stays aligned on page boundaries.
func (p Pager) Clamp() Pager {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Total <= 0 {
		p.Offset = 0
		return p
	}
	if p.Offset >= p.Total {
		if p.Limit <= 0 {
			p.Offset = 0
		} else {
			p.Offset = ((p.Total - 1) / p.Limit) * p.Limit
		}
	}
	return p
}

// ExpectedSize is the number of records the window holds.
func (p Pager) ExpectedSize() int {
	if p.Offset >= p.Total {
		return 0
	}
	n := p.Total - p.Offset
	if p.Limit > 0 && n > p.Limit {
		n = p.Limit
	}
	return n
}

func (p Pager) Pages() int {
	if p.Total <= 0 {
		return 0
	}
	if p.Limit <= 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Page is 1-based.
func (p Pager) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

func (p Pager) AtPage(page int) Pager {
	if page < 1 {
		page = 1
	}
	p.Offset = (page - 1) * p.Limit
	return p.Clamp()
}

func (p Pager) Next() Pager {
	p.Offset += p.Limit
	return p.Clamp()
}

func (p Pager) Prev() Pager {
	p.Offset -= p.Limit
	return p.Clamp()
}

func (p Pager) HasNext() bool { return p.Offset+p.Limit < p.Total }
func (p Pager) HasPrev() bool { return p.Offset > 0 }
