package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReservationConfirmed is published when a reservation enters the confirmed state.
type ReservationConfirmed struct {
	ReservationCode string    `json:"reservation_code"`
	CustomerID      string    `json:"customer_id"`
	ServantID       string    `json:"servant_id,omitempty"`
	TableNumbers    []int     `json:"table_numbers"`
	PartySize       int       `json:"party_size"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

// Notifier dispatches customer notifications. Callers treat failures as non-fatal.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, event ReservationConfirmed) error
	Close() error
}

// LogNotifier only logs the event. Used when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("component", "log_notifier"))}
}

func (n *LogNotifier) ReservationConfirmed(_ context.Context, event ReservationConfirmed) error {
	n.log.Info("Reservation confirmed",
		zap.String("code", event.ReservationCode),
		zap.String("customer_id", event.CustomerID),
		zap.Ints("tables", event.TableNumbers),
		zap.Time("start_time", event.StartTime),
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
