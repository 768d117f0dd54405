package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventTicketClaimed  = "ticket.claimed"
	EventTicketRedeemed = "ticket.redeemed"
	EventTicketReset    = "ticket.reset"
	EventTicketDeleted  = "ticket.deleted"
	EventSpotCreated    = "spot.created"
	EventSpotDeleted    = "spot.deleted"
)

// EventProducer publishes lottery lifecycle events. Handlers depend on this so tests can record events.
type EventProducer interface {
	Produce(ctx context.Context, event, key string, payload map[string]any)
}

// Producer writes events to one topic. Writes are async: the API never waits for Kafka.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer returns a no-op producer when brokers or topic are empty.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Printf("kafka: write %d event(s): %v", len(messages), err)
				}
			},
		},
	}
}

func (p *Producer) Enabled() bool { return p.writer != nil }

// Produce sends {"event": event, "at": ..., ...payload}. key selects the partition, so
// events of one email (or spot) stay ordered.
func (p *Producer) Produce(ctx context.Context, event, key string, payload map[string]any) {
	if p.writer == nil {
		return
	}
	body, err := encodeEvent(event, time.Now().UTC(), payload)
	if err != nil {
		log.Printf("kafka: marshal %s: %v", event, err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		log.Printf("kafka: write %s: %v", event, err)
	}
}

func encodeEvent(event string, at time.Time, payload map[string]any) ([]byte, error) {
	msg := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		msg[k] = v
	}
	msg["event"] = event
	msg["at"] = at.Format(time.RFC3339Nano)
	return json.Marshal(msg)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
