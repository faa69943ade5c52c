package usecase

import (
	"context"
	"math"
	"testing"

	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTablesPages(t *testing.T) {
	env := newTestEnv(t)
	for n := 1; n <= 5; n++ {
		env.addTable(n, 4)
	}
	ctx := context.Background()

	page, err := env.svc.Table.ListTables(ctx, request.PaginatedRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Data[0].Number)
	assert.Equal(t, 4, page.Data[1].Number)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	last, err := env.svc.Table.ListTables(ctx, request.PaginatedRequest{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, last.Data, 1)
	assert.Equal(t, 5, last.Data[0].Number)
}

func TestListTablesPastTheEnd(t *testing.T) {
	env := newTestEnv(t)
	env.addTable(1, 4)
	env.addTable(2, 4)

	for _, p := range []request.PaginatedRequest{
		{Page: math.MaxInt/2 + 2, PerPage: 2},
		{Page: math.MaxInt, PerPage: 100},
		{Page: 9, PerPage: 1},
	} {
		var (
			page *response.PaginatedResponse[*response.TableResponse]
			err  error
		)
		assert.NotPanics(t, func() {
			page, err = env.svc.Table.ListTables(context.Background(), p)
		})
		require.NoError(t, err)
		require.NotNil(t, page)
		assert.Empty(t, page.Data)
	}
}
