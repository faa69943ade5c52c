package usecase

import (
	"context"
	"fmt"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"

	"go.uber.org/zap"
)

// TableService is the read side of the table registry.
type TableService interface {
	ListTables(ctx context.Context, page request.PaginatedRequest) (*response.PaginatedResponse[*response.TableResponse], error)
	GetTable(ctx context.Context, number int) (*response.TableResponse, error)
}

type tableService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewTableService(repo *repository.Repository, log *zap.Logger) TableService {
	return &tableService{
		repo: repo,
		log:  log.With(zap.String("service", "table")),
	}
}

func (s *tableService) ListTables(ctx context.Context, page request.PaginatedRequest) (*response.PaginatedResponse[*response.TableResponse], error) {
	tables, err := s.repo.Table.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to list tables", zap.Error(err))
		return nil, fmt.Errorf("list tables: %w", err)
	}

	// paged in memory over the number-ordered floor
	limit := page.Limit()
	start := min(page.Offset(), len(tables))
	end := min(start+limit, len(tables))

	out := make([]*response.TableResponse, 0, end-start)
	for _, t := range tables[start:end] {
		resp, err := s.toResponse(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return response.NewPaginatedResponse(out, max(page.Page, 1), limit, int64(len(tables))), nil
}

func (s *tableService) GetTable(ctx context.Context, number int) (*response.TableResponse, error) {
	t, err := s.repo.Table.FindByNumber(ctx, number)
	if err != nil {
		s.log.Error("Failed to get table", zap.Error(err), zap.Int("table_number", number))
		return nil, fmt.Errorf("get table %d: %w", number, err)
	}
	if t == nil {
		return nil, notFoundError("table %d not found", number)
	}
	return s.toResponse(ctx, t)
}

func (s *tableService) toResponse(ctx context.Context, t *entity.Table) (*response.TableResponse, error) {
	codes := make([]string, 0, len(t.CurrentReservations))
	for _, id := range t.CurrentReservations {
		res, err := s.repo.Reservation.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve hold of table %d: %w", t.Number, err)
		}
		if res != nil {
			codes = append(codes, res.Code)
		}
	}
	return response.TableToResponse(t, codes), nil
}
