package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationTransitions(t *testing.T) {
	cases := []struct {
		from ReservationStatus
		to   ReservationStatus
		ok   bool
	}{
		{ReservationStatusPending, ReservationStatusConfirmed, true},
		{ReservationStatusPending, ReservationStatusCancelled, true},
		{ReservationStatusPending, ReservationStatusServed, false},
		{ReservationStatusPending, ReservationStatusCompleted, false},
		{ReservationStatusConfirmed, ReservationStatusServed, true},
		{ReservationStatusConfirmed, ReservationStatusCompleted, true},
		{ReservationStatusConfirmed, ReservationStatusNoShow, true},
		{ReservationStatusConfirmed, ReservationStatusCancelled, true},
		{ReservationStatusServed, ReservationStatusCompleted, true},
		{ReservationStatusServed, ReservationStatusCancelled, false},
		{ReservationStatusCompleted, ReservationStatusCancelled, false},
		{ReservationStatusCancelled, ReservationStatusConfirmed, false},
		{ReservationStatusNoShow, ReservationStatusConfirmed, false},
	}

	now := time.Now()
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			r := &Reservation{Code: "ABCD1234", Status: tc.from}
			err := r.TransitionTo(tc.to, now)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, r.Status)
				assert.Equal(t, now, r.UpdatedAt)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.from, r.Status)
			}
		})
	}
}

func TestReservationServeReanchorsWindow(t *testing.T) {
	booked := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	r := &Reservation{Status: ReservationStatusConfirmed, StartTime: booked, EndTime: booked.Add(2 * time.Hour)}

	seated := booked.Add(-20 * time.Minute)
	require.NoError(t, r.Serve(seated, 2*time.Hour))

	assert.Equal(t, ReservationStatusServed, r.Status)
	assert.Equal(t, seated, r.StartTime)
	assert.Equal(t, seated.Add(2*time.Hour), r.EndTime)
}

func TestReservationServeFromPendingFails(t *testing.T) {
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	r := &Reservation{Status: ReservationStatusPending, StartTime: start, EndTime: start.Add(time.Hour)}

	assert.ErrorIs(t, r.Serve(time.Now(), time.Hour), ErrInvalidTransition)
	assert.Equal(t, start, r.StartTime)
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, ReservationStatusCompleted.IsTerminal())
	assert.True(t, ReservationStatusCancelled.IsTerminal())
	assert.True(t, ReservationStatusNoShow.IsTerminal())
	assert.False(t, ReservationStatusServed.IsTerminal())
	assert.False(t, ReservationStatus("bogus").Valid())
}

func TestChannelInitialStatus(t *testing.T) {
	assert.Equal(t, ReservationStatusPending, ChannelOnline.InitialStatus())
	assert.Equal(t, ReservationStatusConfirmed, ChannelStaff.InitialStatus())
	assert.Equal(t, ReservationStatusPending, BookingChannel("").InitialStatus())
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateWindow(start, start.Add(time.Minute)))
	assert.ErrorIs(t, ValidateWindow(start, start), ErrInvalidWindow)
	assert.ErrorIs(t, ValidateWindow(start, start.Add(-time.Minute)), ErrInvalidWindow)
}

func TestPayableAmountNeverNegative(t *testing.T) {
	r := &Reservation{DiscountAmount: decimal.NewFromInt(50_000)}

	assert.True(t, r.PayableAmount(decimal.NewFromInt(200_000)).Equal(decimal.NewFromInt(150_000)))
	assert.True(t, r.PayableAmount(decimal.NewFromInt(10_000)).IsZero())
}

func TestPaymentStatusPoll(t *testing.T) {
	assert.Equal(t, PollPaid, PaymentStatusSuccess.Poll())
	assert.Equal(t, PollFailed, PaymentStatusFailed.Poll())
	assert.Equal(t, PollPending, PaymentStatusPending.Poll())
	assert.Equal(t, PollPending, PaymentStatusUnpaid.Poll())
}
