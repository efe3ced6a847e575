package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventType names the kind of change a ResourceEvent reports.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// ResourceEvent describes a single resource mutation, published to the queue
// after the mutating request has completed successfully.
type ResourceEvent struct {
	Type         EventType              `json:"type"`
	ResourceType string                 `json:"resourceType"`
	ID           string                 `json:"id"`
	Resource     map[string]interface{} `json:"resource,omitempty"`
	At           time.Time              `json:"at"`
}

// Notifier publishes ResourceEvents to a single durable queue on its own
// channel. The queue name is fixed at construction; callers distinguish
// resource types via ResourceEvent.ResourceType rather than separate queues,
// generalizing the teacher's single-purpose group_sync queue.
type Notifier struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewNotifier declares queue (idempotently, like the teacher's DeclareQueue)
// on a fresh channel over conn and returns a Notifier bound to it.
func NewNotifier(conn *amqp.Connection, queue string) (*Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Notifier{conn: conn, ch: ch, queue: queue}, nil
}

// Publish marshals event as JSON and publishes it to the notifier's queue.
func (n *Notifier) Publish(ctx context.Context, event ResourceEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   event.At,
	})
}

// Close closes the notifier's channel and underlying connection.
func (n *Notifier) Close() error {
	_ = n.ch.Close()
	return n.conn.Close()
}
