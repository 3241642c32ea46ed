package domain

import "math"

// DataPage is one page of a list result.
type DataPage[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
}

// TotalPages is 1 when paging is disabled (size <= 0), otherwise
// ceil(TotalElements/Size) floored at 1.
func (p DataPage[T]) TotalPages() int {
	if p.Size <= 0 {
		return 1
	}
	n := int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
	if n < 1 {
		return 1
	}
	return n
}

// Slice pages an in-memory collection. Offset and limit follow the list
// rules: size <= 0 returns everything, otherwise offset = max(page,0)*size.
// Bounds are clamped to the collection.
func Slice[T any](items []T, page, size int) DataPage[T] {
	total := len(items)
	if size <= 0 {
		return DataPage[T]{Content: items, Page: page, Size: size, TotalElements: int64(total)}
	}
	from := total
	if p := max(page, 0); p <= total/size {
		from = min(p*size, total)
	}
	to := from + min(size, total-from)
	return DataPage[T]{Content: items[from:to], Page: page, Size: size, TotalElements: int64(total)}
}

// Offset returns the row offset for a page request, saturating at
// math.MaxInt64 instead of overflowing. ok is false when paging is disabled.
func Offset(page, size int) (offset int64, ok bool) {
	if size <= 0 {
		return 0, false
	}
	p := int64(max(page, 0))
	if p > math.MaxInt64/int64(size) {
		return math.MaxInt64, true
	}
	return p * int64(size), true
}
