package repository

import (
	"context"
	"fmt"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *entity.Coupon) error
	FindByCode(ctx context.Context, code string) (*entity.Coupon, error)

	// Redeem decrements the remaining quantity by one only while the coupon is
	// active, inside its window and not exhausted. Returns ErrCouponUnavailable otherwise.
	Redeem(ctx context.Context, couponID uuid.UUID, now time.Time) error

	// Ownership of point-based coupons
	GrantOwnership(ctx context.Context, couponID, customerID uuid.UUID) error
	IsOwnedBy(ctx context.Context, couponID, customerID uuid.UUID) (bool, error)
}

type couponRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCouponRepository(db database.PgxIface, log *zap.Logger) CouponRepository {
	return &couponRepository{
		db:  db,
		log: log.With(zap.String("repository", "coupon")),
	}
}

func (r *couponRepository) Create(ctx context.Context, c *entity.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_type, discount_value, quantity, valid_from, valid_to,
			is_active, scope, points_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		c.ID,
		c.Code,
		c.DiscountType,
		c.DiscountValue,
		c.Quantity,
		c.ValidFrom,
		c.ValidTo,
		c.IsActive,
		c.Scope,
		c.PointsRequired,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("coupon %s: %w", c.Code, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create coupon", zap.Error(err), zap.String("code", c.Code))
		return fmt.Errorf("create coupon %s: %w", c.Code, err)
	}

	return nil
}

func (r *couponRepository) FindByCode(ctx context.Context, code string) (*entity.Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value, quantity, valid_from, valid_to,
		       is_active, scope, points_required, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`

	var c entity.Coupon
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, code).Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.Quantity,
		&c.ValidFrom,
		&c.ValidTo,
		&c.IsActive,
		&c.Scope,
		&c.PointsRequired,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find coupon by code", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find coupon by code %s: %w", code, err)
	}

	return &c, nil
}

func (r *couponRepository) Redeem(ctx context.Context, couponID uuid.UUID, now time.Time) error {
	query := `
		UPDATE coupons
		SET quantity = quantity - 1, updated_at = $2
		WHERE id = $1 AND is_active AND quantity > 0 AND valid_from <= $2 AND valid_to >= $2
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, couponID, now)
	if err != nil {
		r.log.Error("Failed to redeem coupon", zap.Error(err), zap.String("coupon_id", couponID.String()))
		return fmt.Errorf("redeem coupon %s: %w", couponID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("coupon %s: %w", couponID, ErrCouponUnavailable)
	}

	return nil
}

func (r *couponRepository) GrantOwnership(ctx context.Context, couponID, customerID uuid.UUID) error {
	query := `
		INSERT INTO coupon_ownerships (coupon_id, customer_id)
		VALUES ($1, $2)
		ON CONFLICT (coupon_id, customer_id) DO NOTHING
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, couponID, customerID); err != nil {
		r.log.Error("Failed to grant coupon ownership",
			zap.Error(err),
			zap.String("coupon_id", couponID.String()),
			zap.String("customer_id", customerID.String()),
		)
		return fmt.Errorf("grant coupon %s to %s: %w", couponID, customerID, err)
	}

	return nil
}

func (r *couponRepository) IsOwnedBy(ctx context.Context, couponID, customerID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM coupon_ownerships WHERE coupon_id = $1 AND customer_id = $2)`

	var owned bool
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, couponID, customerID).Scan(&owned); err != nil {
		r.log.Error("Failed to check coupon ownership", zap.Error(err), zap.String("coupon_id", couponID.String()))
		return false, fmt.Errorf("check ownership of coupon %s: %w", couponID, err)
	}

	return owned, nil
}
