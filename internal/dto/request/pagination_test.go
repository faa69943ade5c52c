package request

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginatedRequestWindow(t *testing.T) {
	tests := []struct {
		name   string
		req    PaginatedRequest
		offset int
		limit  int
	}{
		{"first page", PaginatedRequest{Page: 1, PerPage: 10}, 0, 10},
		{"third page", PaginatedRequest{Page: 3, PerPage: 20}, 40, 20},
		{"zero page", PaginatedRequest{Page: 0, PerPage: 5}, 0, 5},
		{"default size", PaginatedRequest{Page: 2}, 10, 10},
		{"oversized page uses the capped size", PaginatedRequest{Page: 2, PerPage: 500}, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.req.Offset())
			assert.Equal(t, tt.limit, tt.req.Limit())
		})
	}
}

func TestPaginatedRequestHugePageDoesNotOverflow(t *testing.T) {
	for _, page := range []int{math.MaxInt, math.MaxInt/2 + 2, math.MaxInt / 100} {
		p := PaginatedRequest{Page: page, PerPage: 100}
		assert.GreaterOrEqual(t, p.Offset(), 0, "page %d", page)
	}
}
