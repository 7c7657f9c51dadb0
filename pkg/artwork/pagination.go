package artwork

// Pagination is the metadata block returned with every page of artworks.
type Pagination struct {
	// Total is the number of records in the whole collection.
	Total int `json:"total"`

	// Limit is the remote page size.
	Limit int `json:"limit"`

	// Offset is the index of the first record of this page.
	Offset int `json:"offset"`

	// TotalPages is the number of remote pages at the current Limit.
	TotalPages int `json:"total_pages"`

	// CurrentPage is the 1-based remote page number.
	CurrentPage int `json:"current_page"`

	// NextURL links the following page; nil on the last page.
	NextURL *string `json:"next_url"`
}

// HasNext reports whether a page after CurrentPage exists.
// Unknown page counts are treated as "maybe", deferring to the record count.
func (p *Pagination) HasNext() bool {
	if p == nil {
		return true
	}
	if p.TotalPages > 0 {
		return p.CurrentPage < p.TotalPages
	}
	if p.Total > 0 && p.Limit > 0 {
		return p.Offset+p.Limit < p.Total
	}
	return true
}

// Page is one remote page as returned by the transport.
type Page struct {
	Records    []RawRecord `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Full reports whether the page carried a complete remote page of records.
// A short or empty page means the source is exhausted.
func (p *Page) Full() bool {
	if len(p.Records) == 0 {
		return false
	}
	if p.Pagination.Limit > 0 && len(p.Records) < p.Pagination.Limit {
		return false
	}
	return p.Pagination.HasNext()
}
