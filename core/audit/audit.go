// Package audit keeps the moderation and activity log of the marketplace.
//
// Log holds the most recent entries in memory, newest first, and optionally
// mirrors every entry to a persistent Store. Store failures are logged and
// never reach the caller.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/logger"
)

// Entry types written by the marketplace.
const (
	TypeSeed     = "seed"
	TypeShipment = "shipment"
	TypeQuote    = "quote"
	TypeBooking  = "booking"
	TypeStatus   = "status"
	TypeMessage  = "message"
	TypePayment  = "payment"
	TypeFlag     = "flag"
	TypeVerify   = "verify"
	TypeBan      = "ban"
	TypeHide     = "hide"
	TypeWipe     = "wipe"
	TypeSession  = "session"
)

// DefaultCapacity bounds the in-memory log.
const DefaultCapacity = 1000

// Entry is one audit record.
type Entry struct {
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Actor   string    `json:"actor"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail"`
}

// Query filters entries of a persistent Store. Zero values match everything.
type Query struct {
	Since time.Time
	Until time.Time
	Actor string
	Type  string
	Limit int
}

func (q Query) match(e Entry) bool {
	if !q.Since.IsZero() && e.TS.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && e.TS.After(q.Until) {
		return false
	}
	if q.Actor != "" && e.Actor != q.Actor {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	return true
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// Log is the in-memory audit log.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	gen      *ids.Generator
	store    Store
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithStore mirrors every entry to s.
func WithStore(s Store) Option { return func(l *Log) { l.store = s } }

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// NewLog returns an empty log allocating ids from gen.
func NewLog(gen *ids.Generator, log logger.Logger, opts ...Option) *Log {
	l := &Log{capacity: DefaultCapacity, gen: gen, log: log, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record appends an entry and returns it.
func (l *Log) Record(ctx context.Context, actor, typ, subject, detail string) Entry {
	e := Entry{
		ID:      l.gen.Next(ids.Log),
		TS:      l.now().UTC(),
		Actor:   actor,
		Type:    typ,
		Subject: subject,
		Detail:  detail,
	}
	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Append(context.WithoutCancel(ctx), e); err != nil {
			l.log.Warnf("audit store append %s: %v", e.ID, err)
		}
	}
	return e
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything held in memory.
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	return append([]Entry(nil), l.entries[:limit]...)
}

// Len reports the number of entries held in memory.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops the in-memory entries. The persistent store keeps its history.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Close closes the persistent store if any.
func (l *Log) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
