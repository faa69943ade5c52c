package notifier

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent() ReservationConfirmed {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return ReservationConfirmed{
		ReservationCode: "ABCD2345",
		CustomerID:      "5f7f2b5e-4d7d-4f0a-9d55-0d0c8a0b9f11",
		TableNumbers:    []int{5},
		PartySize:       4,
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		ConfirmedAt:     start.Add(-time.Hour),
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.ReservationConfirmed(context.Background(), sampleEvent()))

	entries := logs.FilterMessage("Reservation confirmed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ABCD2345", entries[0].ContextMap()["code"])
	assert.NoError(t, n.Close())
}

func TestReservationConfirmedJSON(t *testing.T) {
	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "ABCD2345", fields["reservation_code"])
	assert.NotContains(t, fields, "servant_id")
}

func TestRabbitMQNotifier(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" || testing.Short() {
		t.Skip("RABBITMQ_URL not set")
	}

	queue := "test.reservation.confirmed"
	n, err := NewRabbitMQNotifier(url, queue, zap.NewNop())
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.ReservationConfirmed(context.Background(), sampleEvent()))

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	msg, ok, err := ch.Get(queue, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "ABCD2345", msg.MessageId)
}
