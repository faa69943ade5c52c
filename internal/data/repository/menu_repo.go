package repository

import (
	"context"
	"fmt"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MenuRepository is the read side of the menu catalogue used for order pricing.
type MenuRepository interface {
	CreateFood(ctx context.Context, food *entity.Food) error
	CreateCombo(ctx context.Context, combo *entity.Combo) error
	FindFoodsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Food, error)
	FindCombosByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Combo, error)
}

type menuRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewMenuRepository(db database.PgxIface, log *zap.Logger) MenuRepository {
	return &menuRepository{
		db:  db,
		log: log.With(zap.String("repository", "menu")),
	}
}

func (r *menuRepository) CreateFood(ctx context.Context, f *entity.Food) error {
	query := `
		INSERT INTO foods (id, name, price, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, f.ID, f.Name, f.Price, f.IsAvailable, f.CreatedAt, f.UpdatedAt); err != nil {
		r.log.Error("Failed to create food", zap.Error(err), zap.String("name", f.Name))
		return fmt.Errorf("create food %s: %w", f.Name, err)
	}
	return nil
}

func (r *menuRepository) CreateCombo(ctx context.Context, c *entity.Combo) error {
	query := `
		INSERT INTO combos (id, name, price, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, c.ID, c.Name, c.Price, c.IsAvailable, c.CreatedAt, c.UpdatedAt); err != nil {
		r.log.Error("Failed to create combo", zap.Error(err), zap.String("name", c.Name))
		return fmt.Errorf("create combo %s: %w", c.Name, err)
	}
	return nil
}

func (r *menuRepository) FindFoodsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Food, error) {
	query := `SELECT id, name, price, is_available, created_at, updated_at FROM foods WHERE id = ANY($1)`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find foods", zap.Error(err))
		return nil, fmt.Errorf("find foods: %w", err)
	}
	defer rows.Close()

	var foods []*entity.Food
	for rows.Next() {
		var f entity.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.Price, &f.IsAvailable, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan food row: %w", err)
		}
		foods = append(foods, &f)
	}

	return foods, rows.Err()
}

func (r *menuRepository) FindCombosByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Combo, error) {
	query := `SELECT id, name, price, is_available, created_at, updated_at FROM combos WHERE id = ANY($1)`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find combos", zap.Error(err))
		return nil, fmt.Errorf("find combos: %w", err)
	}
	defer rows.Close()

	var combos []*entity.Combo
	for rows.Next() {
		var c entity.Combo
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.IsAvailable, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan combo row: %w", err)
		}
		combos = append(combos, &c)
	}

	return combos, rows.Err()
}
