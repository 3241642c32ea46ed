package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3}

	tests := []struct {
		name       string
		page, size int
		want       []int
	}{
		{"unpaged", 0, 0, []int{1, 2, 3}},
		{"first page", 0, 2, []int{1, 2}},
		{"last partial page", 1, 2, []int{3}},
		{"past the end", 2, 2, []int{}},
		{"negative page", -4, 2, []int{1, 2}},
		{"page times size overflows", (1 << 62) + 1, 2, []int{}},
		{"max page", math.MaxInt, 3, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got DataPage[int]
			assert.NotPanics(t, func() { got = Slice(items, tt.page, tt.size) })
			assert.Equal(t, tt.want, got.Content)
			assert.Equal(t, int64(3), got.TotalElements)
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		want       int64
		ok         bool
	}{
		{"unpaged", 3, 0, 0, false},
		{"regular", 3, 25, 75, true},
		{"negative page", -1, 25, 0, true},
		{"saturates", (1 << 62) + 1, 2, math.MaxInt64, true},
		{"max page", math.MaxInt, math.MaxInt, math.MaxInt64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Offset(tt.page, tt.size)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataPage_TotalPages(t *testing.T) {
	assert.Equal(t, 1, DataPage[int]{Size: 0, TotalElements: 10}.TotalPages())
	assert.Equal(t, 1, DataPage[int]{Size: 5, TotalElements: 0}.TotalPages())
	assert.Equal(t, 3, DataPage[int]{Size: 5, TotalElements: 11}.TotalPages())
}
