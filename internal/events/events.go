// Package events publishes ticket lifecycle notifications for downstream
// consumers (mailers, analytics). Publishing happens after the database
// commit and never decides the outcome of a request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// Type is the routing key of a lifecycle event.
type Type string

const (
	TicketRegistered    Type = "ticket.registered"
	TicketReactivated   Type = "ticket.reactivated"
	TicketCheckedIn     Type = "ticket.checked_in"
	TicketStatusChanged Type = "ticket.status_changed"
	TicketDeleted       Type = "ticket.deleted"
)

// TicketEvent is the message body.
type TicketEvent struct {
	Type       Type               `json:"type"`
	TicketID   string             `json:"ticketId"`
	TicketCode string             `json:"ticketCode"`
	EventID    string             `json:"eventId"`
	AttendeeID string             `json:"attendeeId"`
	Status     model.TicketStatus `json:"status"`
	Previous   model.TicketStatus `json:"previousStatus,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// FromTicket builds an event for t.
func FromTicket(typ Type, t *model.Ticket, previous model.TicketStatus, at time.Time) TicketEvent {
	return TicketEvent{
		Type:       typ,
		TicketID:   t.ID,
		TicketCode: t.TicketCode,
		EventID:    t.EventID,
		AttendeeID: t.AttendeeID,
		Status:     t.Status,
		Previous:   previous,
		OccurredAt: at,
	}
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev TicketEvent) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, TicketEvent) error { return nil }

// AMQPPublisher publishes JSON events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev TicketEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         b,
	})
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
