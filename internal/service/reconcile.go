package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/events"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// UpdateStatus sets a ticket's status outside the registration and check-in
// paths. When the change moves the ticket across the counted boundary
// (confirmed/checked_in on one side, pending/cancelled on the other) the
// ledger is adjusted by one in the same transaction as the status write.
// Moving out of cancelled into a counted status fails when the event is full.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) (_ *model.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.UpdateStatus",
		trace.WithAttributes(
			attribute.String("ticket.id", id),
			attribute.String("ticket.status", string(status)),
		))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !validID(id) {
		return nil, ErrTicketNotFound
	}

	var (
		out      *model.Ticket
		previous model.TicketStatus
		delta    int
	)
	now := s.now()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.tickets.GetForUpdate(ctx, id)
		if err != nil {
			return ticketLookupErr(err)
		}
		previous = cur.Status

		if cur.Status != status {
			delta = model.CapacityDelta(cur.Status, status)
			if err := s.adjust(ctx, cur.EventID, delta); err != nil {
				return err
			}
			if err := s.tickets.SetStatus(ctx, id, status, now); err != nil {
				return fmt.Errorf("set status: %w", err)
			}
		}

		out, err = s.tickets.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		return nil
	})
	s.metrics.StatusChange(outcome(err))
	if err != nil {
		s.logFailure("status change", err, slog.String("ticket_id", id))
		return nil, err
	}
	if previous == status {
		return out, nil
	}

	s.metrics.Ledger(delta)
	s.log.Info("ticket status changed",
		slog.String("ticket_id", id),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
		slog.Int("ledger_delta", delta),
	)
	s.publish(ctx, events.FromTicket(events.TicketStatusChanged, out, previous, now))
	return out, nil
}

// Delete removes a ticket. The registered count is decremented only when
// the ticket was occupying capacity; deleting a cancelled or pending ticket
// leaves the ledger alone.
func (s *TicketService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "TicketService.Delete",
		trace.WithAttributes(attribute.String("ticket.id", id)))
	defer func() { endSpan(span, err) }()

	if !validID(id) {
		return ErrTicketNotFound
	}

	var (
		deleted *model.Ticket
		delta   int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.tickets.GetForUpdate(ctx, id)
		if err != nil {
			return ticketLookupErr(err)
		}
		if cur.Status.Counted() {
			delta = -1
		}
		if err := s.adjust(ctx, cur.EventID, delta); err != nil {
			return err
		}
		if err := s.tickets.Delete(ctx, id); err != nil {
			return ticketLookupErr(err)
		}
		deleted = cur
		return nil
	})
	s.metrics.StatusChange(outcome(err))
	if err != nil {
		s.logFailure("ticket delete", err, slog.String("ticket_id", id))
		return err
	}

	s.metrics.Ledger(delta)
	s.log.Info("ticket deleted",
		slog.String("ticket_id", id),
		slog.String("status", string(deleted.Status)),
		slog.Int("ledger_delta", delta),
	)
	s.publish(ctx, events.FromTicket(events.TicketDeleted, deleted, deleted.Status, s.now()))
	return nil
}
