// Package marketplace implements the freight marketplace operations on top of
// an injected repository.
//
// Shipments are posted by shippers, quoted by transporters and booked when the
// shipper accepts a quote. Acceptance is the one cross entity transition: it
// runs in a critical section keyed by shipment id so a shipment yields at most
// one booking. Every mutation is written to the audit log and announced
// through the Publisher; neither can fail the caller.
package marketplace

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/logger"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/core/repository"
)

// Service exposes the marketplace operations.
type Service struct {
	repo  repository.Repository
	ids   *ids.Generator
	pub   publisher.Publisher
	audit *audit.Log
	acc   coremetrics.AcceptanceRecorder
	log   logger.Logger
	now   func() time.Time
	locks *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithAuditLog replaces the default in-memory audit log.
func WithAuditLog(l *audit.Log) Option { return func(s *Service) { s.audit = l } }

// WithAcceptanceRecorder records the outcome of every quote acceptance.
func WithAcceptanceRecorder(r coremetrics.AcceptanceRecorder) Option {
	return func(s *Service) { s.acc = r }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a Service. A nil publisher discards events.
func New(repo repository.Repository, gen *ids.Generator, pub publisher.Publisher, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		ids:   gen,
		pub:   pub,
		acc:   coremetrics.NopSink{},
		log:   logger.Nop{},
		now:   time.Now,
		locks: newKeyedMutex(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.pub == nil {
		s.pub = publisher.Nop{}
	}
	if s.audit == nil {
		s.audit = audit.NewLog(gen, s.log, audit.WithClock(s.now))
	}
	return s
}

// AuditLog returns the audit log written by the service.
func (s *Service) AuditLog() *audit.Log { return s.audit }

func (s *Service) clock() time.Time { return s.now().UTC() }

// lookup maps a repository miss to a NotFound error carrying msg.
func lookup(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return fmt.Errorf("marketplace: %s: %w", msg, err)
}

// storeErr wraps an unexpected repository failure.
func storeErr(op string, err error) error {
	return fmt.Errorf("marketplace: %s: %w", op, err)
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
