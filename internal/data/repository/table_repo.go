package repository

import (
	"context"
	"fmt"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TableRepository is the table registry. Hold mutations are reserved for the
// reservation lifecycle; nothing else should call AddHold or ReleaseHold.
type TableRepository interface {
	Create(ctx context.Context, table *entity.Table) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Table, error)
	FindByNumber(ctx context.Context, number int) (*entity.Table, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Table, error)
	FindAll(ctx context.Context) ([]*entity.Table, error)

	// LockForUpdate serializes writers on the given tables until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, ids []uuid.UUID) error

	// Hold membership
	AddHold(ctx context.Context, reservationID uuid.UUID, tableIDs []uuid.UUID) error
	ReleaseHold(ctx context.Context, reservationID uuid.UUID) error
}

type tableRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTableRepository(db database.PgxIface, log *zap.Logger) TableRepository {
	return &tableRepository{
		db:  db,
		log: log.With(zap.String("repository", "table")),
	}
}

const tableColumns = `t.id, t.table_number, t.capacity, t.is_open, t.created_at, t.updated_at,
	COALESCE(ARRAY(SELECT h.reservation_id FROM table_holds h WHERE h.table_id = t.id ORDER BY h.held_at, h.reservation_id), '{}')`

func scanTable(row pgx.Row) (*entity.Table, error) {
	var t entity.Table
	err := row.Scan(
		&t.ID,
		&t.Number,
		&t.Capacity,
		&t.IsOpen,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CurrentReservations,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tableRepository) Create(ctx context.Context, table *entity.Table) error {
	query := `
		INSERT INTO restaurant_tables (id, table_number, capacity, is_open, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		table.ID,
		table.Number,
		table.Capacity,
		table.IsOpen,
		table.CreatedAt,
		table.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("table %d: %w", table.Number, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create table", zap.Error(err), zap.Int("table_number", table.Number))
		return fmt.Errorf("create table %d: %w", table.Number, err)
	}

	return nil
}

func (r *tableRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM restaurant_tables t WHERE t.id = $1`

	table, err := scanTable(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find table by ID", zap.Error(err), zap.String("table_id", id.String()))
		return nil, fmt.Errorf("find table by ID %s: %w", id, err)
	}

	return table, nil
}

func (r *tableRepository) FindByNumber(ctx context.Context, number int) (*entity.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM restaurant_tables t WHERE t.table_number = $1`

	table, err := scanTable(database.Conn(ctx, r.db).QueryRow(ctx, query, number))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find table by number", zap.Error(err), zap.Int("table_number", number))
		return nil, fmt.Errorf("find table by number %d: %w", number, err)
	}

	return table, nil
}

func (r *tableRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM restaurant_tables t WHERE t.id = ANY($1) ORDER BY t.table_number`
	return r.query(ctx, query, ids)
}

func (r *tableRepository) FindAll(ctx context.Context) ([]*entity.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM restaurant_tables t ORDER BY t.table_number`
	return r.query(ctx, query)
}

func (r *tableRepository) query(ctx context.Context, query string, args ...any) ([]*entity.Table, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query tables", zap.Error(err))
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []*entity.Table
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			r.log.Error("Failed to scan table row", zap.Error(err))
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}

	return tables, rows.Err()
}

func (r *tableRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) error {
	// ordered to keep lock acquisition deadlock-free across concurrent bookings
	query := `SELECT id FROM restaurant_tables WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("lock tables: %w", err)
	}
	rows.Close()
	return rows.Err()
}

func (r *tableRepository) AddHold(ctx context.Context, reservationID uuid.UUID, tableIDs []uuid.UUID) error {
	query := `
		INSERT INTO table_holds (table_id, reservation_id)
		SELECT unnest($2::uuid[]), $1
		ON CONFLICT (table_id, reservation_id) DO NOTHING
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, reservationID, tableIDs); err != nil {
		r.log.Error("Failed to add table hold",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return fmt.Errorf("add hold for reservation %s: %w", reservationID, err)
	}

	return nil
}

func (r *tableRepository) ReleaseHold(ctx context.Context, reservationID uuid.UUID) error {
	query := `DELETE FROM table_holds WHERE reservation_id = $1`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, reservationID); err != nil {
		r.log.Error("Failed to release table hold",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return fmt.Errorf("release hold for reservation %s: %w", reservationID, err)
	}

	return nil
}
