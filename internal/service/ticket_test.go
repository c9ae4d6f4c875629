package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/apperr"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/qrcode"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type TicketServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	clock   *clock
	metrics *metrics.Metrics
	svc     *service.TicketService
}

func TestTicketServiceSuite(t *testing.T) {
	suite.Run(t, new(TicketServiceSuite))
}

func (s *TicketServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.clock = &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = s.newService()
}

func (s *TicketServiceSuite) newService(opts ...service.Option) *service.TicketService {
	opts = append([]service.Option{service.WithClock(s.clock.Now)}, opts...)
	return service.NewTicketService(service.Deps{
		Tx:        s.store,
		Events:    s.store.Events(),
		Ledger:    s.store.Ledger(),
		Tickets:   s.store.Tickets(),
		Attendees: s.store.Attendees(),
		QR:        qrcode.NewRenderer(nil, logger.Discard()),
		Metrics:   s.metrics,
		Log:       logger.Discard(),
	}, opts...)
}

// addEvent stores an active event starting a week after the suite clock.
func (s *TicketServiceSuite) addEvent(capacity int) *model.Event {
	start := s.clock.Now().Add(7 * 24 * time.Hour)
	e := &model.Event{
		ID:          uuid.NewString(),
		Title:       "GopherCon",
		Capacity:    capacity,
		StartDate:   start,
		EndDate:     start.Add(8 * time.Hour),
		IsActive:    true,
		OrganizerID: uuid.NewString(),
		CreatedAt:   s.clock.Now(),
	}
	s.Require().NoError(s.store.Events().Create(s.ctx, e))
	return e
}

func (s *TicketServiceSuite) registeredCount(eventID string) int {
	e, err := s.store.Events().GetByID(s.ctx, eventID)
	s.Require().NoError(err)
	return e.RegisteredCount
}

func (s *TicketServiceSuite) register(eventID, email string) (*model.Ticket, error) {
	return s.svc.Register(s.ctx, service.RegisterInput{
		EventID:  eventID,
		Email:    email,
		FullName: "Test Attendee",
	}, "")
}

func (s *TicketServiceSuite) startEvent(e *model.Event) {
	s.clock.Set(e.StartDate.Add(time.Minute))
}

func (s *TicketServiceSuite) TestRegister() {
	s.Run("issues a confirmed ticket and increments the count", func() {
		event := s.addEvent(10)

		ticket, err := s.svc.Register(s.ctx, service.RegisterInput{
			EventID:  event.ID,
			Email:    "  Ada@Example.com ",
			FullName: "Ada Lovelace",
			Company:  "Analytical",
		}, "")
		s.Require().NoError(err)

		s.Equal(model.TicketConfirmed, ticket.Status)
		s.NotEmpty(ticket.TicketCode)
		s.Contains(ticket.TicketCode, event.ID[:8])
		s.Nil(ticket.CheckedInAt)
		s.Require().NotNil(ticket.Attendee)
		s.Equal("ada@example.com", ticket.Attendee.Email)
		s.Equal(model.RoleAttendee, ticket.Attendee.Role)
		s.Require().NotNil(ticket.Event)
		s.Equal(1, ticket.Event.RegisteredCount)
		s.Equal(1, s.registeredCount(event.ID))

		png, err := qrcode.DecodeDataURL(ticket.QRCode)
		s.Require().NoError(err)
		s.NotEmpty(png)
	})

	s.Run("reuses an existing attendee account", func() {
		event := s.addEvent(10)
		other := s.addEvent(10)

		first, err := s.register(event.ID, "grace@example.com")
		s.Require().NoError(err)
		second, err := s.register(other.ID, "grace@example.com")
		s.Require().NoError(err)

		s.Equal(first.AttendeeID, second.AttendeeID)
	})

	s.Run("rejects invalid input before touching storage", func() {
		cases := []struct {
			name string
			in   service.RegisterInput
		}{
			{"missing event", service.RegisterInput{Email: "a@b.io", FullName: "A"}},
			{"event not a uuid", service.RegisterInput{EventID: "abc", Email: "a@b.io", FullName: "A"}},
			{"bad email", service.RegisterInput{EventID: uuid.NewString(), Email: "nope", FullName: "A"}},
			{"missing name", service.RegisterInput{EventID: uuid.NewString(), Email: "a@b.io", FullName: "  "}},
		}
		for _, tc := range cases {
			_, err := s.svc.Register(s.ctx, tc.in, "")
			s.True(apperr.Is(err, apperr.KindBadRequest), tc.name)
		}
	})

	s.Run("unknown event is not found", func() {
		_, err := s.register(uuid.NewString(), "x@example.com")
		s.ErrorIs(err, service.ErrEventNotFound)
	})

	s.Run("inactive event is rejected", func() {
		event := s.addEvent(10)
		event.IsActive = false
		s.Require().NoError(s.store.Events().Create(s.ctx, event))

		_, err := s.register(event.ID, "x@example.com")
		s.ErrorIs(err, service.ErrEventInactive)
		s.Equal(0, s.registeredCount(event.ID))
	})

	s.Run("started event is rejected", func() {
		event := s.addEvent(10)
		s.startEvent(event)
		defer s.clock.Set(event.StartDate.Add(-7 * 24 * time.Hour))

		_, err := s.register(event.ID, "late@example.com")
		s.ErrorIs(err, service.ErrEventStarted)
	})

	s.Run("duplicate registration conflicts", func() {
		event := s.addEvent(10)
		_, err := s.register(event.ID, "dup@example.com")
		s.Require().NoError(err)

		_, err = s.register(event.ID, "DUP@example.com")
		s.ErrorIs(err, service.ErrAlreadyRegistered)
		s.Equal(1, s.registeredCount(event.ID))
	})

	s.Run("acting user cannot register another account's email", func() {
		event := s.addEvent(10)
		owner, err := s.register(event.ID, "owner@example.com")
		s.Require().NoError(err)
		other := s.addEvent(10)

		_, err = s.svc.Register(s.ctx, service.RegisterInput{
			EventID:  other.ID,
			Email:    "owner@example.com",
			FullName: "Impostor",
		}, uuid.NewString())
		s.ErrorIs(err, service.ErrEmailOwnedByOther)
		s.Equal(0, s.registeredCount(other.ID))

		_, err = s.svc.Register(s.ctx, service.RegisterInput{
			EventID:  other.ID,
			Email:    "owner@example.com",
			FullName: "Owner",
		}, owner.AttendeeID)
		s.NoError(err)
	})

	s.Run("acting user may register an email with no account yet", func() {
		event := s.addEvent(10)

		ticket, err := s.svc.Register(s.ctx, service.RegisterInput{
			EventID:  event.ID,
			Email:    "brand-new@example.com",
			FullName: "New Person",
		}, uuid.NewString())
		s.Require().NoError(err)
		s.Equal(model.TicketConfirmed, ticket.Status)
		s.Require().NotNil(ticket.Attendee)
		s.Equal("brand-new@example.com", ticket.Attendee.Email)
		s.Equal(1, s.registeredCount(event.ID))
	})
}

// A full event rejects further registrations and leaves the count alone.
func (s *TicketServiceSuite) TestCapacityReached() {
	event := s.addEvent(1)

	x, err := s.register(event.ID, "x@example.com")
	s.Require().NoError(err)
	s.Equal(model.TicketConfirmed, x.Status)
	s.Equal(1, s.registeredCount(event.ID))

	_, err = s.register(event.ID, "y@example.com")
	s.ErrorIs(err, service.ErrEventFull)
	s.True(apperr.Is(err, apperr.KindBadRequest))
	s.Equal(1, s.registeredCount(event.ID))

	tickets, err := s.svc.List(s.ctx, model.TicketFilter{EventID: event.ID})
	s.Require().NoError(err)
	s.Len(tickets, 1)
}

func (s *TicketServiceSuite) TestConcurrentRegistrationsNeverExceedCapacity() {
	const capacity, attempts = 5, 40
	event := s.addEvent(capacity)

	var wg sync.WaitGroup
	var ok, full atomic.Int32
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.register(event.ID, fmt.Sprintf("user%d@example.com", i))
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.Is(err, apperr.KindBadRequest):
				full.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(capacity), ok.Load())
	s.Equal(int32(attempts-capacity), full.Load())
	s.Equal(capacity, s.registeredCount(event.ID))

	tickets, err := s.svc.List(s.ctx, model.TicketFilter{EventID: event.ID})
	s.Require().NoError(err)
	s.Len(tickets, capacity)
}

// Two simultaneous registrations of the same new email: one ticket, one seat.
func (s *TicketServiceSuite) TestConcurrentSameEmail() {
	event := s.addEvent(1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.register(event.ID, "race@example.com")
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := apperr.KindOf(err)
		s.True(kind == apperr.KindConflict || kind == apperr.KindBadRequest, "unexpected error %v", err)
	}
	s.Equal(1, succeeded)
	s.Equal(1, s.registeredCount(event.ID))

	tickets, err := s.svc.List(s.ctx, model.TicketFilter{EventID: event.ID})
	s.Require().NoError(err)
	s.Len(tickets, 1)
}

func (s *TicketServiceSuite) TestCancelAndReregisterReusesTicket() {
	event := s.addEvent(1)

	original, err := s.register(event.ID, "x@example.com")
	s.Require().NoError(err)
	s.Equal(1, s.registeredCount(event.ID))

	cancelled, err := s.svc.UpdateStatus(s.ctx, original.ID, model.TicketCancelled)
	s.Require().NoError(err)
	s.Equal(model.TicketCancelled, cancelled.Status)
	s.Equal(0, s.registeredCount(event.ID))

	again, err := s.register(event.ID, "x@example.com")
	s.Require().NoError(err)
	s.Equal(original.ID, again.ID)
	s.Equal(original.TicketCode, again.TicketCode)
	s.Equal(model.TicketConfirmed, again.Status)
	s.Equal(1, s.registeredCount(event.ID))
}

func (s *TicketServiceSuite) TestReactivationRespectsCapacity() {
	event := s.addEvent(1)

	x, err := s.register(event.ID, "x@example.com")
	s.Require().NoError(err)
	_, err = s.svc.UpdateStatus(s.ctx, x.ID, model.TicketCancelled)
	s.Require().NoError(err)
	_, err = s.register(event.ID, "y@example.com")
	s.Require().NoError(err)

	_, err = s.register(event.ID, "x@example.com")
	s.ErrorIs(err, service.ErrEventFull)

	t, err := s.svc.Get(s.ctx, x.ID)
	s.Require().NoError(err)
	s.Equal(model.TicketCancelled, t.Status)
	s.Equal(1, s.registeredCount(event.ID))
}

func (s *TicketServiceSuite) TestCheckIn() {
	s.Run("before the event starts", func() {
		event := s.addEvent(10)
		ticket, err := s.register(event.ID, "early@example.com")
		s.Require().NoError(err)

		_, err = s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.ErrorIs(err, service.ErrEventNotStarted)

		s.startEvent(event)
		checked, err := s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.Require().NoError(err)
		s.Equal(model.TicketCheckedIn, checked.Status)
		s.Require().NotNil(checked.CheckedInAt)
		s.True(checked.CheckedInAt.Equal(s.clock.Now()))
		s.Equal(1, s.registeredCount(event.ID))
	})

	s.Run("twice keeps the first timestamp", func() {
		s.clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		event := s.addEvent(10)
		ticket, err := s.register(event.ID, "twice@example.com")
		s.Require().NoError(err)
		s.startEvent(event)

		first, err := s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.Require().NoError(err)

		s.clock.Set(s.clock.Now().Add(time.Hour))
		_, err = s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.ErrorIs(err, service.ErrAlreadyCheckedIn)

		after, err := s.svc.Get(s.ctx, ticket.ID)
		s.Require().NoError(err)
		s.Equal(*first.CheckedInAt, *after.CheckedInAt)
	})

	s.Run("cancelled ticket", func() {
		s.clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		event := s.addEvent(10)
		ticket, err := s.register(event.ID, "gone@example.com")
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketCancelled)
		s.Require().NoError(err)
		s.startEvent(event)

		_, err = s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.ErrorIs(err, service.ErrTicketCancelled)
	})

	s.Run("unknown code", func() {
		_, err := s.svc.CheckIn(s.ctx, "missing-code")
		s.ErrorIs(err, service.ErrTicketNotFound)

		_, err = s.svc.CheckIn(s.ctx, "   ")
		s.True(apperr.Is(err, apperr.KindBadRequest))
	})

	s.Run("pending ticket takes a seat", func() {
		s.clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		event := s.addEvent(10)
		ticket, err := s.register(event.ID, "pending@example.com")
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketPending)
		s.Require().NoError(err)
		s.Equal(0, s.registeredCount(event.ID))
		s.startEvent(event)

		_, err = s.svc.CheckIn(s.ctx, ticket.TicketCode)
		s.Require().NoError(err)
		s.Equal(1, s.registeredCount(event.ID))
	})
}

func (s *TicketServiceSuite) TestConcurrentCheckInSucceedsOnce() {
	event := s.addEvent(10)
	ticket, err := s.register(event.ID, "door@example.com")
	s.Require().NoError(err)
	s.startEvent(event)

	const scanners = 10
	var wg sync.WaitGroup
	var ok, already atomic.Int32
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.CheckIn(s.ctx, ticket.TicketCode)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.Is(err, apperr.KindBadRequest):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(scanners-1), already.Load())
	s.Equal(1, s.registeredCount(event.ID))
}

func (s *TicketServiceSuite) TestUpdateStatusAdjustsLedger() {
	cases := []struct {
		from, to model.TicketStatus
		want     int
	}{
		{model.TicketConfirmed, model.TicketCancelled, 0},
		{model.TicketConfirmed, model.TicketPending, 0},
		{model.TicketConfirmed, model.TicketCheckedIn, 1},
		{model.TicketConfirmed, model.TicketConfirmed, 1},
		{model.TicketCancelled, model.TicketConfirmed, 1},
		{model.TicketCancelled, model.TicketPending, 0},
		{model.TicketPending, model.TicketCheckedIn, 1},
		{model.TicketCheckedIn, model.TicketCancelled, 0},
	}
	for _, tc := range cases {
		s.Run(fmt.Sprintf("%s to %s", tc.from, tc.to), func() {
			event := s.addEvent(5)
			ticket, err := s.register(event.ID, uuid.NewString()+"@example.com")
			s.Require().NoError(err)
			if tc.from != model.TicketConfirmed {
				_, err = s.svc.UpdateStatus(s.ctx, ticket.ID, tc.from)
				s.Require().NoError(err)
			}

			updated, err := s.svc.UpdateStatus(s.ctx, ticket.ID, tc.to)
			s.Require().NoError(err)
			s.Equal(tc.to, updated.Status)
			s.Equal(tc.want, s.registeredCount(event.ID))
		})
	}
}

func (s *TicketServiceSuite) TestUpdateStatus() {
	s.Run("checked in timestamp is never overwritten", func() {
		event := s.addEvent(5)
		ticket, err := s.register(event.ID, "stamp@example.com")
		s.Require().NoError(err)

		first, err := s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketCheckedIn)
		s.Require().NoError(err)
		s.Require().NotNil(first.CheckedInAt)

		s.clock.Set(s.clock.Now().Add(time.Hour))
		_, err = s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketConfirmed)
		s.Require().NoError(err)
		again, err := s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketCheckedIn)
		s.Require().NoError(err)
		s.Equal(*first.CheckedInAt, *again.CheckedInAt)
	})

	s.Run("leaving cancelled fails when the event is full", func() {
		event := s.addEvent(1)
		x, err := s.register(event.ID, "x-full@example.com")
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx, x.ID, model.TicketCancelled)
		s.Require().NoError(err)
		_, err = s.register(event.ID, "y-full@example.com")
		s.Require().NoError(err)

		_, err = s.svc.UpdateStatus(s.ctx, x.ID, model.TicketConfirmed)
		s.ErrorIs(err, service.ErrEventFull)

		t, err := s.svc.Get(s.ctx, x.ID)
		s.Require().NoError(err)
		s.Equal(model.TicketCancelled, t.Status)
	})

	s.Run("invalid status", func() {
		_, err := s.svc.UpdateStatus(s.ctx, uuid.NewString(), model.TicketStatus("lost"))
		s.ErrorIs(err, service.ErrInvalidStatus)
	})

	s.Run("unknown ticket", func() {
		_, err := s.svc.UpdateStatus(s.ctx, uuid.NewString(), model.TicketCancelled)
		s.ErrorIs(err, service.ErrTicketNotFound)
		_, err = s.svc.UpdateStatus(s.ctx, "not-a-uuid", model.TicketCancelled)
		s.ErrorIs(err, service.ErrTicketNotFound)
	})
}

func (s *TicketServiceSuite) TestDelete() {
	s.Run("counted ticket frees its seat", func() {
		event := s.addEvent(5)
		ticket, err := s.register(event.ID, "del@example.com")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Delete(s.ctx, ticket.ID))
		s.Equal(0, s.registeredCount(event.ID))

		_, err = s.svc.Get(s.ctx, ticket.ID)
		s.ErrorIs(err, service.ErrTicketNotFound)
	})

	s.Run("cancelled ticket leaves the count alone", func() {
		event := s.addEvent(5)
		keep, err := s.register(event.ID, "keep@example.com")
		s.Require().NoError(err)
		ticket, err := s.register(event.ID, "cancel-del@example.com")
		s.Require().NoError(err)
		_, err = s.svc.UpdateStatus(s.ctx, ticket.ID, model.TicketCancelled)
		s.Require().NoError(err)
		s.Equal(1, s.registeredCount(event.ID))

		s.Require().NoError(s.svc.Delete(s.ctx, ticket.ID))
		s.Equal(1, s.registeredCount(event.ID))

		_, err = s.svc.Get(s.ctx, keep.ID)
		s.NoError(err)
	})

	s.Run("unknown ticket", func() {
		s.ErrorIs(s.svc.Delete(s.ctx, uuid.NewString()), service.ErrTicketNotFound)
	})
}

func (s *TicketServiceSuite) TestCodeCollisionIsRetried() {
	event := s.addEvent(5)
	first, err := s.register(event.ID, "first@example.com")
	s.Require().NoError(err)

	var calls atomic.Int32
	svc := s.newService(service.WithCodeGenerator(func(eventID string, now time.Time) string {
		if calls.Add(1) <= 2 {
			return first.TicketCode
		}
		return service.NewTicketCode(eventID, now)
	}))

	second, err := svc.Register(s.ctx, service.RegisterInput{
		EventID:  event.ID,
		Email:    "second@example.com",
		FullName: "Second",
	}, "")
	s.Require().NoError(err)
	s.NotEqual(first.TicketCode, second.TicketCode)
	s.Equal(int32(3), calls.Load())
	s.Equal(2, s.registeredCount(event.ID))
}

func (s *TicketServiceSuite) TestCodeCollisionGivesUp() {
	event := s.addEvent(5)
	first, err := s.register(event.ID, "first@example.com")
	s.Require().NoError(err)

	svc := s.newService(service.WithCodeGenerator(func(string, time.Time) string {
		return first.TicketCode
	}))
	_, err = svc.Register(s.ctx, service.RegisterInput{
		EventID:  event.ID,
		Email:    "second@example.com",
		FullName: "Second",
	}, "")
	s.Require().Error(err)
	s.Equal(apperr.KindInternal, apperr.KindOf(err))
	s.Equal(1, s.registeredCount(event.ID))
}

func (s *TicketServiceSuite) TestReads() {
	event := s.addEvent(5)
	a, err := s.register(event.ID, "a@example.com")
	s.Require().NoError(err)
	s.clock.Set(s.clock.Now().Add(time.Second))
	b, err := s.register(event.ID, "b@example.com")
	s.Require().NoError(err)

	byCode, err := s.svc.GetByCode(s.ctx, a.TicketCode)
	s.Require().NoError(err)
	s.Equal(a.ID, byCode.ID)
	s.Equal(model.TicketConfirmed, byCode.Status)

	all, err := s.svc.List(s.ctx, model.TicketFilter{EventID: event.ID})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(b.ID, all[0].ID, "newest first")

	mine, err := s.svc.List(s.ctx, model.TicketFilter{AttendeeID: a.AttendeeID})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(a.ID, mine[0].ID)

	png, err := s.svc.QRCode(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal([]byte("\x89PNG"), png[:4])
}

func (s *TicketServiceSuite) TestMetrics() {
	event := s.addEvent(1)
	_, err := s.register(event.ID, "m1@example.com")
	s.Require().NoError(err)
	_, err = s.register(event.ID, "m2@example.com")
	s.Require().Error(err)

	s.InDelta(1, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("created")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("rejected")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.LedgerAdjusts.WithLabelValues("increment")), 0)
}

func (s *TicketServiceSuite) TestCheckInRejectionsAreCounted() {
	_, err := s.svc.CheckIn(s.ctx, "   ")
	s.True(apperr.Is(err, apperr.KindBadRequest))

	_, err = s.svc.CheckIn(s.ctx, "NO-SUCH-CODE")
	s.ErrorIs(err, service.ErrTicketNotFound)

	s.InDelta(1, testutil.ToFloat64(s.metrics.CheckIns.WithLabelValues("rejected")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CheckIns.WithLabelValues("not_found")), 0)
}

// ticketsWithoutEvent returns tickets with no event relation attached.
type ticketsWithoutEvent struct{ *memory.TicketStore }

func (t ticketsWithoutEvent) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	ticket, err := t.TicketStore.GetByCode(ctx, code)
	if ticket != nil {
		ticket.Event = nil
	}
	return ticket, err
}

type vanishedEvents struct{ *memory.EventStore }

func (vanishedEvents) GetByID(context.Context, string) (*model.Event, error) {
	return nil, repository.ErrNotFound
}

func (s *TicketServiceSuite) TestCheckInMissingEventIsNotFound() {
	event := s.addEvent(5)
	ticket, err := s.register(event.ID, "gone@example.com")
	s.Require().NoError(err)

	svc := service.NewTicketService(service.Deps{
		Tx:        s.store,
		Events:    vanishedEvents{s.store.Events()},
		Ledger:    s.store.Ledger(),
		Tickets:   ticketsWithoutEvent{s.store.Tickets()},
		Attendees: s.store.Attendees(),
		QR:        qrcode.NewRenderer(nil, logger.Discard()),
		Metrics:   s.metrics,
		Log:       logger.Discard(),
	}, service.WithClock(s.clock.Now))

	_, err = svc.CheckIn(s.ctx, ticket.TicketCode)
	s.ErrorIs(err, service.ErrEventNotFound)
	s.True(apperr.Is(err, apperr.KindNotFound))
}
