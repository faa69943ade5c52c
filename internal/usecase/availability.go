package usecase

import (
	"context"
	"fmt"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityPolicy is the table turnover policy applied around existing bookings.
type AvailabilityPolicy struct {
	// An existing booking starting in [start-TooSoonBuffer, start-TooCloseCutoff] blocks the request.
	TooSoonBuffer  time.Duration
	TooCloseCutoff time.Duration
	// Idle time required after an existing booking ends before the table is bookable again.
	TurnoverBuffer time.Duration
	// Length of the occupancy window set when guests are seated.
	DefaultDuration time.Duration
}

func DefaultAvailabilityPolicy() AvailabilityPolicy {
	return AvailabilityPolicy{
		TooSoonBuffer:   2 * time.Hour,
		TooCloseCutoff:  30 * time.Minute,
		TurnoverBuffer:  2 * time.Hour,
		DefaultDuration: 2 * time.Hour,
	}
}

// NewAvailabilityPolicy builds the policy from config, falling back to defaults for unset values.
func NewAvailabilityPolicy(cfg utils.BookingConfig) AvailabilityPolicy {
	p := DefaultAvailabilityPolicy()
	if cfg.TooSoonBuffer > 0 {
		p.TooSoonBuffer = cfg.TooSoonBuffer
	}
	if cfg.TooCloseCutoff > 0 {
		p.TooCloseCutoff = cfg.TooCloseCutoff
	}
	if cfg.TurnoverBuffer > 0 {
		p.TurnoverBuffer = cfg.TurnoverBuffer
	}
	if cfg.DefaultDuration > 0 {
		p.DefaultDuration = cfg.DefaultDuration
	}
	return p
}

// Conflicts reports whether an existing booking [s,e) blocks the candidate window [start,end).
func (p AvailabilityPolicy) Conflicts(start, end, s, e time.Time) bool {
	switch {
	// candidate starts inside the existing window
	case !start.Before(s) && start.Before(e):
		return true
	// candidate ends inside the existing window
	case end.After(s) && !end.After(e):
		return true
	// candidate swallows the existing window
	case !s.Before(start) && !end.Before(e):
		return true
	// existing booking starts shortly before the candidate
	case !s.Before(start.Add(-p.TooSoonBuffer)) && !s.After(start.Add(-p.TooCloseCutoff)):
		return true
	// existing booking is still running within the buffer after the candidate starts
	case e.After(start) && e.Before(start.Add(p.TurnoverBuffer)):
		return true
	// candidate starts before the table has turned over
	case !start.Before(e) && start.Before(e.Add(p.TurnoverBuffer)):
		return true
	// candidate ends too close to the existing start for the table to turn over
	case !end.After(s) && s.Before(end.Add(p.TurnoverBuffer)):
		return true
	}
	return false
}

// AvailabilityResult is the outcome of a check; a conflict is not an error.
type AvailabilityResult struct {
	Available           bool
	ConflictingTableIDs []uuid.UUID
}

type AvailabilityService interface {
	CheckAvailability(ctx context.Context, req *request.CheckAvailabilityRequest) (*response.AvailabilityResponse, error)
}

type availabilityChecker struct {
	reservations repository.ReservationRepository
	policy       AvailabilityPolicy
	log          *zap.Logger
}

func newAvailabilityChecker(repo repository.ReservationRepository, policy AvailabilityPolicy, log *zap.Logger) *availabilityChecker {
	return &availabilityChecker{
		reservations: repo,
		policy:       policy,
		log:          log.With(zap.String("service", "availability")),
	}
}

func NewAvailabilityService(repo repository.ReservationRepository, policy AvailabilityPolicy, log *zap.Logger) AvailabilityService {
	return newAvailabilityChecker(repo, policy, log)
}

func (c *availabilityChecker) CheckAvailability(ctx context.Context, req *request.CheckAvailabilityRequest) (*response.AvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	tableIDs, err := parseTableIDs(req.TableIDs)
	if err != nil {
		return nil, err
	}

	result, err := c.Check(ctx, tableIDs, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, err
	}

	conflicting := make([]string, len(result.ConflictingTableIDs))
	for i, id := range result.ConflictingTableIDs {
		conflicting[i] = id.String()
	}
	return &response.AvailabilityResponse{
		Available:           result.Available,
		ConflictingTableIDs: conflicting,
	}, nil
}

// Check evaluates the window against every non-cancelled reservation on the tables.
// A single conflicting table rejects the whole request.
func (c *availabilityChecker) Check(ctx context.Context, tableIDs []uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*AvailabilityResult, error) {
	if len(tableIDs) == 0 {
		return nil, validationError("at least one table is required")
	}
	if err := entity.ValidateWindow(start, end); err != nil {
		return nil, wrapCause(validationError("end time must be after start time"), err)
	}

	existing, err := c.reservations.FindActiveByTableIDs(ctx, tableIDs, exclude)
	if err != nil {
		c.log.Error("Failed to load reservations for availability", zap.Error(err))
		return nil, fmt.Errorf("check availability: %w", err)
	}

	conflicting := make(map[uuid.UUID]bool)
	for _, r := range existing {
		if !c.policy.Conflicts(start, end, r.StartTime, r.EndTime) {
			continue
		}
		for _, id := range tableIDs {
			if r.UsesTable(id) {
				conflicting[id] = true
			}
		}
	}

	result := &AvailabilityResult{Available: len(conflicting) == 0, ConflictingTableIDs: []uuid.UUID{}}
	for _, id := range tableIDs {
		if conflicting[id] {
			result.ConflictingTableIDs = append(result.ConflictingTableIDs, id)
		}
	}

	if !result.Available {
		c.log.Info("Requested window conflicts",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Int("conflicting_tables", len(result.ConflictingTableIDs)),
		)
	}
	return result, nil
}

// parseTableIDs parses and dedupes table ids, keeping request order.
func parseTableIDs(raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, wrapCause(validationError("invalid table ID %s", s), err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, validationError("at least one table is required")
	}
	return ids, nil
}
