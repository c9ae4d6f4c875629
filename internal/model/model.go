// Package model defines the core domain types for the ticketing system.
package model

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketConfirmed TicketStatus = "confirmed"
	TicketCheckedIn TicketStatus = "checked_in"
	TicketCancelled TicketStatus = "cancelled"
)

// ParseTicketStatus converts a wire value into a TicketStatus.
func ParseTicketStatus(s string) (TicketStatus, error) {
	st := TicketStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketPending, TicketConfirmed, TicketCheckedIn, TicketCancelled:
		return true
	}
	return false
}

// Counted reports whether a ticket in this status occupies event capacity.
func (s TicketStatus) Counted() bool {
	switch s {
	case TicketConfirmed, TicketCheckedIn:
		return true
	case TicketPending, TicketCancelled:
		return false
	}
	return false
}

// CapacityDelta returns the change in registered count caused by moving a
// ticket from one status to another: -1, 0 or +1.
func CapacityDelta(from, to TicketStatus) int {
	var d int
	if from.Counted() {
		d--
	}
	if to.Counted() {
		d++
	}
	return d
}

// Role is the role of an authenticated user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
)

// ParseRole converts a claim value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleAdmin, RoleOrganizer, RoleAttendee:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Event is a capacity-bounded event created by an organizer.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Capacity        int       `json:"capacity"`
	RegisteredCount int       `json:"registeredCount"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	IsActive        bool      `json:"isActive"`
	OrganizerID     string    `json:"organizerId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// HasStarted reports whether the event start is at or before now.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartDate.After(now)
}

// Attendee is a user in the attendee role.
type Attendee struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Company   string    `json:"company,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ticket is an attendee's admission to an event.
type Ticket struct {
	ID          string       `json:"id"`
	TicketCode  string       `json:"ticketCode"`
	Status      TicketStatus `json:"status"`
	QRCode      string       `json:"qrCode,omitempty"`
	CheckedInAt *time.Time   `json:"checkedInAt"`
	EventID     string       `json:"eventId"`
	AttendeeID  string       `json:"attendeeId"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Event    *Event    `json:"event,omitempty"`
	Attendee *Attendee `json:"attendee,omitempty"`
}

// TicketFilter narrows a ticket listing. Empty fields match everything.
type TicketFilter struct {
	EventID    string
	AttendeeID string
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Location    string    `json:"location" validate:"max=300"`
	Capacity    int       `json:"capacity" validate:"required,min=1,max=100000"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	EventID  string `json:"eventId" validate:"required,uuid"`
	Email    string `json:"email" validate:"required,email,max=320"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Company  string `json:"company,omitempty" validate:"max=200"`
}

// UpdateTicketRequest is the payload for a ticket status change.
type UpdateTicketRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed checked_in cancelled"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
