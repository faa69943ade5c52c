package entity

import "github.com/google/uuid"

type Table struct {
	Base
	Number              int         `db:"table_number"`
	Capacity            int         `db:"capacity"`
	IsOpen              bool        `db:"is_open"`
	CurrentReservations []uuid.UUID `db:"-"` // ordered by hold time
}

// Holds reports whether the reservation currently holds this table.
func (t *Table) Holds(reservationID uuid.UUID) bool {
	for _, id := range t.CurrentReservations {
		if id == reservationID {
			return true
		}
	}
	return false
}

// TotalCapacity sums the seats of the given tables.
func TotalCapacity(tables []*Table) int {
	total := 0
	for _, t := range tables {
		total += t.Capacity
	}
	return total
}
