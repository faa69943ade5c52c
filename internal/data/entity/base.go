package entity

import (
	"time"

	"github.com/google/uuid"
)

type Base struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Versioned carries the optimistic concurrency token of a mutable record.
// Saves only succeed when the stored version still matches.
type Versioned struct {
	Version int64 `db:"version"`
}
