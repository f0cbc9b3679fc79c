package events

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher drains the outbox into a Kafka topic on a ticker, keyed by
// aggregate id so events for one order stay ordered.
type Publisher struct {
	timeout time.Duration
	tick    time.Duration
	outbox  *Outbox
	writer  messageWriter
}

func NewPublisher(outbox *Outbox, topic string, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{
		timeout: 5 * time.Second,
		tick:    time.Second,
		outbox:  outbox,
		writer:  w,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) publishPending(ctx context.Context) {
	pending := p.outbox.Drain(100)
	if len(pending) == 0 {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	published := make([]string, 0, len(pending))
	for _, event := range pending {
		msg := kafka.Message{
			Key:   []byte(event.Key),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
				{Key: "event_id", Value: []byte(event.ID)},
			},
		}
		if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, err)
			break // keep ordering, retry from here next tick
		}
		published = append(published, event.ID)
	}

	p.outbox.Ack(published)
}
