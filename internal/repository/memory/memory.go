// Package memory is an in-process implementation of the repositories. It
// backs the unit tests and the `storage: memory` mode.
//
// Transactions are serialized by one mutex and rolled back by restoring a
// snapshot, which gives the same isolation the Postgres row locks give the
// ticketing workflows.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
)

type state struct {
	events    map[string]model.Event
	tickets   map[string]model.Ticket
	attendees map[string]model.Attendee
	// byEmail indexes attendees by email.
	byEmail map[string]string
}

func (s *state) clone() *state {
	c := &state{
		events:    make(map[string]model.Event, len(s.events)),
		tickets:   make(map[string]model.Ticket, len(s.tickets)),
		attendees: make(map[string]model.Attendee, len(s.attendees)),
		byEmail:   make(map[string]string, len(s.byEmail)),
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.attendees {
		c.attendees[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	return c
}

// Store holds all in-memory tables.
type Store struct {
	mu    sync.Mutex
	data  *state
	txKey *int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data: &state{
			events:    make(map[string]model.Event),
			tickets:   make(map[string]model.Ticket),
			attendees: make(map[string]model.Attendee),
			byEmail:   make(map[string]string),
		},
		txKey: new(int),
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(s.txKey).(bool)
	return v
}

// WithinTx runs fn with exclusive access to the store. Any error or panic
// restores the state seen when fn started.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()
	return fn(context.WithValue(ctx, s.txKey, true))
}

// do runs fn under the store lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Events() *EventStore       { return &EventStore{s} }
func (s *Store) Ledger() *Ledger           { return &Ledger{s} }
func (s *Store) Tickets() *TicketStore     { return &TicketStore{s} }
func (s *Store) Attendees() *AttendeeStore { return &AttendeeStore{s} }

// EventStore is the in-memory event repository.
type EventStore struct{ s *Store }

func (r *EventStore) Create(ctx context.Context, e *model.Event) error {
	return r.s.do(ctx, func(d *state) error {
		e.RegisteredCount = 0
		d.events[e.ID] = *e
		return nil
	})
}

func (r *EventStore) List(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := r.s.do(ctx, func(d *state) error {
		for _, e := range d.events {
			out = append(out, e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, err
}

func (r *EventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var out *model.Event
	err := r.s.do(ctx, func(d *state) error {
		e, ok := d.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; transactions already hold the store lock.
func (r *EventStore) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.GetByID(ctx, id)
}

// Ledger is the in-memory capacity ledger.
type Ledger struct{ s *Store }

func (l *Ledger) Increment(ctx context.Context, eventID string) error {
	return l.s.do(ctx, func(d *state) error {
		e, ok := d.events[eventID]
		if !ok {
			return repository.ErrNotFound
		}
		if e.RegisteredCount >= e.Capacity {
			return repository.ErrCapacityReached
		}
		e.RegisteredCount++
		d.events[eventID] = e
		return nil
	})
}

func (l *Ledger) Decrement(ctx context.Context, eventID string) error {
	return l.s.do(ctx, func(d *state) error {
		e, ok := d.events[eventID]
		if !ok {
			return repository.ErrNotFound
		}
		if e.RegisteredCount <= 0 {
			return repository.ErrInvalidState
		}
		e.RegisteredCount--
		d.events[eventID] = e
		return nil
	})
}

// TicketStore is the in-memory ticket repository.
type TicketStore struct{ s *Store }

func (r *TicketStore) Create(ctx context.Context, t *model.Ticket) error {
	return r.s.do(ctx, func(d *state) error {
		for _, other := range d.tickets {
			if other.TicketCode == t.TicketCode {
				return repository.ErrTicketCodeTaken
			}
			if other.EventID == t.EventID && other.AttendeeID == t.AttendeeID {
				return repository.ErrConflict
			}
		}
		if _, ok := d.events[t.EventID]; !ok {
			return repository.ErrNotFound
		}
		row := *t
		row.Event, row.Attendee = nil, nil
		d.tickets[t.ID] = row
		return nil
	})
}

func (r *TicketStore) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var out *model.Ticket
	err := r.s.do(ctx, func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d.joined(t)
		return nil
	})
	return out, err
}

func (r *TicketStore) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	var out *model.Ticket
	err := r.s.do(ctx, func(d *state) error {
		for _, t := range d.tickets {
			if t.TicketCode == code {
				out = d.joined(t)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *TicketStore) FindByPair(ctx context.Context, eventID, attendeeID string) (*model.Ticket, error) {
	var out *model.Ticket
	err := r.s.do(ctx, func(d *state) error {
		for _, t := range d.tickets {
			if t.EventID == eventID && t.AttendeeID == attendeeID {
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *TicketStore) GetForUpdate(ctx context.Context, id string) (*model.Ticket, error) {
	var out *model.Ticket
	err := r.s.do(ctx, func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *TicketStore) List(ctx context.Context, f model.TicketFilter) ([]model.Ticket, error) {
	var out []model.Ticket
	err := r.s.do(ctx, func(d *state) error {
		for _, t := range d.tickets {
			if f.EventID != "" && t.EventID != f.EventID {
				continue
			}
			if f.AttendeeID != "" && t.AttendeeID != f.AttendeeID {
				continue
			}
			out = append(out, *d.joined(t))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *TicketStore) Reactivate(ctx context.Context, id, qrCode string, now time.Time) error {
	return r.s.do(ctx, func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		if t.Status != model.TicketCancelled {
			return repository.ErrInvalidState
		}
		t.Status = model.TicketConfirmed
		t.QRCode = qrCode
		t.UpdatedAt = now
		d.tickets[id] = t
		return nil
	})
}

func (r *TicketStore) SetStatus(ctx context.Context, id string, status model.TicketStatus, now time.Time) error {
	return r.s.do(ctx, func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		t.Status = status
		t.UpdatedAt = now
		if status == model.TicketCheckedIn && t.CheckedInAt == nil {
			at := now
			t.CheckedInAt = &at
		}
		d.tickets[id] = t
		return nil
	})
}

func (r *TicketStore) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(d *state) error {
		t, found := d.tickets[id]
		if !found {
			return nil
		}
		if t.Status != model.TicketConfirmed && t.Status != model.TicketPending {
			return nil
		}
		t.Status = model.TicketCheckedIn
		t.UpdatedAt = at
		if t.CheckedInAt == nil {
			stamp := at
			t.CheckedInAt = &stamp
		}
		d.tickets[id] = t
		ok = true
		return nil
	})
	return ok, err
}

func (r *TicketStore) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(d *state) error {
		if _, ok := d.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.tickets, id)
		return nil
	})
}

func (d *state) joined(t model.Ticket) *model.Ticket {
	if e, ok := d.events[t.EventID]; ok {
		t.Event = &e
	}
	if a, ok := d.attendees[t.AttendeeID]; ok {
		t.Attendee = &a
	}
	return &t
}

// AttendeeStore is the in-memory attendee directory.
type AttendeeStore struct{ s *Store }

func (r *AttendeeStore) FindByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	var out *model.Attendee
	err := r.s.do(ctx, func(d *state) error {
		id, ok := d.byEmail[email]
		if !ok {
			return repository.ErrNotFound
		}
		a := d.attendees[id]
		out = &a
		return nil
	})
	return out, err
}

// FindOrCreate mirrors the Postgres directory. Memory mode keeps no password
// hashes; nothing authenticates against it.
func (r *AttendeeStore) FindOrCreate(ctx context.Context, in repository.AttendeeInput) (_ *model.Attendee, created bool, err error) {
	var out *model.Attendee
	err = r.s.do(ctx, func(d *state) error {
		if id, ok := d.byEmail[in.Email]; ok {
			a := d.attendees[id]
			out = &a
			return nil
		}
		a := model.Attendee{
			ID:        uuid.NewString(),
			Email:     in.Email,
			FullName:  in.FullName,
			Company:   in.Company,
			Role:      model.RoleAttendee,
			CreatedAt: time.Now().UTC(),
		}
		d.attendees[a.ID] = a
		d.byEmail[a.Email] = a.ID
		out, created = &a, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// AddUser inserts a user directly, for seeding organizer and admin accounts.
func (r *AttendeeStore) AddUser(ctx context.Context, a model.Attendee) error {
	return r.s.do(ctx, func(d *state) error {
		if _, ok := d.byEmail[a.Email]; ok {
			return repository.ErrConflict
		}
		d.attendees[a.ID] = a
		d.byEmail[a.Email] = a.ID
		return nil
	})
}
