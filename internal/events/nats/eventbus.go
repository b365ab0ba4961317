// Package nats publishes pass events to NATS JetStream so companion
// tools (the web UI, the linking CLI) can observe long runs without
// polling the database.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/riptidemedia/riptide/pkg/events"
	"github.com/riptidemedia/riptide/pkg/interfaces"
)

const maxEventAge = 7 * 24 * time.Hour

// EventBus implements the event bus on NATS JetStream.
type EventBus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger interfaces.Logger
}

// NewEventBus connects to NATS and ensures the stream exists.
func NewEventBus(url, stream string, logger interfaces.Logger) (*EventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{stream + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   maxEventAge,
		Discard:  nats.DiscardOld,
		Replicas: 1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &EventBus{
		conn:   conn,
		js:     js,
		stream: stream,
		logger: logger,
	}, nil
}

func (eb *EventBus) subject(eventType string) string {
	return eb.stream + "." + eventType
}

// Publish publishes an event to JetStream.
func (eb *EventBus) Publish(ctx context.Context, event interfaces.Event) error {
	payload, err := json.Marshal(envelopeOf(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := eb.js.Publish(eb.subject(event.EventType()), payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}
	return nil
}

// PublishAsync publishes without waiting for the JetStream ack.
func (eb *EventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	payload, err := json.Marshal(envelopeOf(event))
	if err != nil {
		eb.logger.Error("Failed to marshal event",
			interfaces.String("event_type", event.EventType()),
			interfaces.Error(err))
		return
	}

	if _, err := eb.js.PublishAsync(eb.subject(event.EventType()), payload); err != nil {
		eb.logger.Error("Failed to publish event",
			interfaces.String("event_type", event.EventType()),
			interfaces.Error(err))
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	_, err := eb.js.Subscribe(eb.subject(eventType), func(msg *nats.Msg) {
		var event events.BaseEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			eb.logger.Error("Failed to decode event",
				interfaces.String("subject", msg.Subject),
				interfaces.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := handler.Handle(ctx, &event); err != nil {
			eb.logger.Error("Event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", eventType, err)
	}
	return nil
}

// Stop drains the connection.
func (eb *EventBus) Stop() error {
	if err := eb.conn.Drain(); err != nil {
		return err
	}
	eb.conn.Close()
	return nil
}

func envelopeOf(event interfaces.Event) *events.BaseEvent {
	if base, ok := event.(*events.BaseEvent); ok {
		return base
	}
	return &events.BaseEvent{
		Type:  event.EventType(),
		Time:  event.Timestamp(),
		AggID: event.AggregateID(),
	}
}
