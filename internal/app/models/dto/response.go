package dto

// APIResponse is the envelope of the JSON endpoints used by page scripts.
type APIResponse struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// PaginationInfo describes one page of a listing.
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
}

// HasPrev and HasNext drive the pager links in templates.
func (p PaginationInfo) HasPrev() bool { return p.CurrentPage > 1 }
func (p PaginationInfo) HasNext() bool { return p.CurrentPage < p.TotalPages }
func (p PaginationInfo) Prev() int     { return p.CurrentPage - 1 }
func (p PaginationInfo) Next() int     { return p.CurrentPage + 1 }
