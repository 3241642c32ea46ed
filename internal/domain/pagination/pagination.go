// Package pagination computes the compact three-segment page-link layout:
// a first block, a window around the current page and a last block, with
// ellipses between non-adjacent segments.
package pagination

import "adminkit/internal/domain"

const (
	blockSize = 3 // pages in the first and last blocks
	radius    = 3 // pages on each side of the current page
)

// View is the per-request pagination state of one rendered page.
type View struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	PageSize      int   `json:"pageSize"`
	StartRecord   int64 `json:"startRecord"`
	EndRecord     int64 `json:"endRecord"`

	FirstBlockPages   []int `json:"firstBlockPages"`
	MiddleWindowPages []int `json:"middleWindowPages"`
	LastBlockPages    []int `json:"lastBlockPages"`

	EllipsisBeforeMiddle bool `json:"ellipsisBeforeMiddle"`
	EllipsisAfterMiddle  bool `json:"ellipsisAfterMiddle"`
}

// Link is one rendered pager element. Ellipsis links carry no page.
type Link struct {
	Page     int  `json:"page"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// Compute derives the view. A page size <= 0 means the page shows every
// record.
func Compute(currentPage, totalPages int, totalElements int64, pageSize int) View {
	v := View{
		CurrentPage:   currentPage,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		PageSize:      pageSize,
	}

	if totalElements > 0 {
		if pageSize > 0 {
			v.StartRecord = int64(currentPage)*int64(pageSize) + 1
			v.EndRecord = min(int64(currentPage+1)*int64(pageSize), totalElements)
		} else {
			v.StartRecord = 1
			v.EndRecord = totalElements
		}
	}

	v.FirstBlockPages = pageRange(0, min(blockSize-1, totalPages-1))
	if totalPages > 0 {
		v.LastBlockPages = pageRange(max(totalPages-blockSize, 0), totalPages-1)
	} else {
		v.LastBlockPages = []int{}
	}
	v.MiddleWindowPages = pageRange(
		max(currentPage-radius, 0, blockSize),
		min(currentPage+radius, totalPages-1, totalPages-blockSize-1),
	)

	v.EllipsisBeforeMiddle = currentPage-radius > blockSize
	v.EllipsisAfterMiddle = currentPage+radius < totalPages-blockSize-1
	return v
}

// FromPage computes the view of a data page.
func FromPage[T any](p domain.DataPage[T]) View {
	return Compute(p.Page, p.TotalPages(), p.TotalElements, p.Size)
}

// Links renders the segments in order. A page number is rendered once even
// when blocks overlap.
func (v View) Links() []Link {
	seen := make(map[int]bool)
	links := make([]Link, 0, len(v.FirstBlockPages)+len(v.MiddleWindowPages)+len(v.LastBlockPages)+2)
	add := func(pages []int) {
		for _, p := range pages {
			if seen[p] {
				continue
			}
			seen[p] = true
			links = append(links, Link{Page: p, Current: p == v.CurrentPage})
		}
	}

	add(v.FirstBlockPages)
	if v.EllipsisBeforeMiddle {
		links = append(links, Link{Ellipsis: true})
	}
	add(v.MiddleWindowPages)
	if v.EllipsisAfterMiddle {
		links = append(links, Link{Ellipsis: true})
	}
	add(v.LastBlockPages)
	return links
}

func pageRange(from, to int) []int {
	if to < from {
		return []int{}
	}
	out := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		out = append(out, p)
	}
	return out
}
