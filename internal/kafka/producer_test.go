package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducer_DisabledWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, "lottery.tickets")
	require.False(t, p.Enabled())
	p.Produce(context.Background(), EventTicketClaimed, "a@x.io", map[string]any{"ticket_id": 1})
	require.NoError(t, p.Close())

	p = NewProducer([]string{"localhost:9092"}, "")
	require.False(t, p.Enabled())
}

func TestNewProducer_Enabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "lottery.tickets")
	require.True(t, p.Enabled())
	require.Equal(t, "lottery.tickets", p.writer.Topic)
	require.True(t, p.writer.Async)
	require.NoError(t, p.Close())
}

func TestEncodeEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := encodeEvent(EventTicketRedeemed, at, map[string]any{
		"ticket_id": 7,
		"event":     "overridden",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "ticket.redeemed", got["event"])
	require.Equal(t, "2025-03-01T12:00:00Z", got["at"])
	require.EqualValues(t, 7, got["ticket_id"])
}
