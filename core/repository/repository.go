// Package repository declares the storage contract of the marketplace.
//
// Every call is individually atomic. Cross entity invariants (single
// acceptance per shipment) are enforced by the marketplace service, not by
// the repository.
package repository

import (
	"context"
	"errors"

	"github.com/kilianp07/freightmarket/core/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: not found")

// Shipments stores posted loads.
type Shipments interface {
	CreateShipment(ctx context.Context, s model.Shipment) error
	Shipment(ctx context.Context, id string) (model.Shipment, error)
	UpdateShipment(ctx context.Context, s model.Shipment) error
	ListShipments(ctx context.Context) ([]model.Shipment, error)
}

// Quotes stores transporter offers.
type Quotes interface {
	CreateQuote(ctx context.Context, q model.Quote) error
	Quote(ctx context.Context, id string) (model.Quote, error)
	UpdateQuote(ctx context.Context, q model.Quote) error
	QuotesByShipment(ctx context.Context, shipmentID string) ([]model.Quote, error)
}

// Bookings stores bookings and their threads.
type Bookings interface {
	// CreateBooking stores b, its thread and the thread's first messages in
	// one step.
	CreateBooking(ctx context.Context, b model.Booking, th model.Thread, msgs ...model.Message) error
	Booking(ctx context.Context, id string) (model.Booking, error)
	// UpdateBooking replaces b and appends msgs to its thread in one step.
	UpdateBooking(ctx context.Context, b model.Booking, msgs ...model.Message) error
	ListBookings(ctx context.Context) ([]model.Booking, error)
	Thread(ctx context.Context, id string) (model.Thread, error)
}

// Messages stores booking thread messages.
type Messages interface {
	AppendMessage(ctx context.Context, m model.Message) error
	Messages(ctx context.Context, threadID string) ([]model.Message, error)
}

// DirectMessages stores two party conversations.
type DirectMessages interface {
	// GetOrCreateDMThread returns the thread stored under key, creating it with
	// newThread when absent. created reports whether a thread was inserted.
	GetOrCreateDMThread(ctx context.Context, key string, newThread func() model.DMThread) (th model.DMThread, created bool, err error)
	DMThread(ctx context.Context, id string) (model.DMThread, error)
	DMThreadsForUser(ctx context.Context, userID string) ([]model.DMThread, error)
	AppendDMMessage(ctx context.Context, m model.DMMessage) error
	DMMessages(ctx context.Context, threadID string) ([]model.DMMessage, error)
}

// Users stores marketplace participants.
type Users interface {
	CreateUser(ctx context.Context, u model.User) error
	User(ctx context.Context, id string) (model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Flags stores moderation flags.
type Flags interface {
	CreateFlag(ctx context.Context, f model.Flag) error
	FlagByShipment(ctx context.Context, shipmentID string) (model.Flag, error)
	UpdateFlag(ctx context.Context, f model.Flag) error
	ListFlags(ctx context.Context) ([]model.Flag, error)
}

// Repository aggregates every collection.
type Repository interface {
	Shipments
	Quotes
	Bookings
	Messages
	DirectMessages
	Users
	Flags
	Counts(ctx context.Context) (model.Counts, error)
	// Wipe removes every record.
	Wipe(ctx context.Context) error
}
