package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1 // Default page is 1-based
)

// CalculateOffsetLimit calculates the offset and limit for SQL queries based on 1-based page index.
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	if size <= 0 || size > MaxPageSize {
		limit = DefaultPageSize
	} else {
		limit = size
	}

	if page < 1 {
		page = DefaultPage
	}

	offset = uint64((page - 1) * limit)
	return offset, limit
}

// TotalPages returns how many pages of size hold totalItems; at least 1.
func TotalPages(totalItems int64, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if totalItems <= 0 {
		return 1
	}
	return int(math.Ceil(float64(totalItems) / float64(size)))
}

// ClampPage moves page into [1, TotalPages].
func ClampPage(page int, totalItems int64, size int) int {
	if page < 1 {
		return DefaultPage
	}
	if last := TotalPages(totalItems, size); page > last {
		return last
	}
	return page
}

// NewPaginationInfo creates a standard PaginationInfo DTO.
// page should be the 1-based page number.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	if size <= 0 {
		size = DefaultPageSize
	}

	return dto.PaginationInfo{
		CurrentPage: ClampPage(page, totalItems, size),
		TotalPages:  TotalPages(totalItems, size),
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// PageFetcher loads one window of a listing and reports the total row count.
type PageFetcher[T any] func(offset uint64, limit int) ([]T, int64, error)

// FetchPage loads the requested page. A page past the end is clamped to the
// last page and loaded again.
func FetchPage[T any](page, size int, fetch PageFetcher[T]) ([]T, dto.PaginationInfo, error) {
	if page < 1 {
		page = DefaultPage
	}
	offset, limit := CalculateOffsetLimit(page, size)

	items, total, err := fetch(offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}

	if len(items) == 0 && page > 1 {
		// The window total is unknown when the window is empty.
		if _, total, err = fetch(0, limit); err != nil {
			return nil, dto.PaginationInfo{}, err
		}
		page = ClampPage(page, total, limit)
		offset, _ = CalculateOffsetLimit(page, limit)
		if total > 0 {
			if items, total, err = fetch(offset, limit); err != nil {
				return nil, dto.PaginationInfo{}, err
			}
		}
	}

	return items, NewPaginationInfo(total, page, limit), nil
}

// ParsePage extracts the 1-based page query parameter
func ParsePage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return DefaultPage
	}
	return page
}
