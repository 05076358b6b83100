// Package memory provides the in-process implementation of repository.Repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/freightmarket/core/model"
	"github.com/kilianp07/freightmarket/core/repository"
)

// Store keeps every marketplace collection in maps guarded by one RWMutex.
// Slices of ids preserve insertion order for listings.
type Store struct {
	mu sync.RWMutex

	shipments     map[string]model.Shipment
	shipmentOrder []string
	quotes        map[string]model.Quote
	quotesByShip  map[string][]string
	bookings      map[string]model.Booking
	bookingOrder  []string
	threads       map[string]model.Thread
	messages      map[string][]model.Message
	dmThreads     map[string]model.DMThread
	dmByPair      map[string]string
	dmMessages    map[string][]model.DMMessage
	users         map[string]model.User
	userOrder     []string
	flags         map[string]model.Flag
	flagOrder     []string
}

var _ repository.Repository = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.shipments = map[string]model.Shipment{}
	s.shipmentOrder = nil
	s.quotes = map[string]model.Quote{}
	s.quotesByShip = map[string][]string{}
	s.bookings = map[string]model.Booking{}
	s.bookingOrder = nil
	s.threads = map[string]model.Thread{}
	s.messages = map[string][]model.Message{}
	s.dmThreads = map[string]model.DMThread{}
	s.dmByPair = map[string]string{}
	s.dmMessages = map[string][]model.DMMessage{}
	s.users = map[string]model.User{}
	s.userOrder = nil
	s.flags = map[string]model.Flag{}
	s.flagOrder = nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", repository.ErrNotFound, kind, id)
}

func duplicate(kind, id string) error {
	return fmt.Errorf("memory: %s %s already exists", kind, id)
}

// CreateShipment implements repository.Shipments.
func (s *Store) CreateShipment(ctx context.Context, sh model.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[sh.ID]; ok {
		return duplicate("shipment", sh.ID)
	}
	s.shipments[sh.ID] = sh
	s.shipmentOrder = append(s.shipmentOrder, sh.ID)
	return nil
}

// Shipment implements repository.Shipments.
func (s *Store) Shipment(ctx context.Context, id string) (model.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return model.Shipment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok {
		return model.Shipment{}, notFound("shipment", id)
	}
	return sh, nil
}

// UpdateShipment implements repository.Shipments.
func (s *Store) UpdateShipment(ctx context.Context, sh model.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[sh.ID]; !ok {
		return notFound("shipment", sh.ID)
	}
	s.shipments[sh.ID] = sh
	return nil
}

// ListShipments implements repository.Shipments.
func (s *Store) ListShipments(ctx context.Context) ([]model.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Shipment, 0, len(s.shipmentOrder))
	for _, id := range s.shipmentOrder {
		out = append(out, s.shipments[id])
	}
	return out, nil
}

// CreateQuote implements repository.Quotes.
func (s *Store) CreateQuote(ctx context.Context, q model.Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[q.ID]; ok {
		return duplicate("quote", q.ID)
	}
	s.quotes[q.ID] = q
	s.quotesByShip[q.ShipmentID] = append(s.quotesByShip[q.ShipmentID], q.ID)
	return nil
}

// Quote implements repository.Quotes.
func (s *Store) Quote(ctx context.Context, id string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[id]
	if !ok {
		return model.Quote{}, notFound("quote", id)
	}
	return q, nil
}

// UpdateQuote implements repository.Quotes.
func (s *Store) UpdateQuote(ctx context.Context, q model.Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[q.ID]; !ok {
		return notFound("quote", q.ID)
	}
	s.quotes[q.ID] = q
	return nil
}

// QuotesByShipment implements repository.Quotes. Quotes are returned in
// submission order.
func (s *Store) QuotesByShipment(ctx context.Context, shipmentID string) ([]model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.quotesByShip[shipmentID]
	out := make([]model.Quote, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.quotes[id])
	}
	return out, nil
}

// CreateBooking implements repository.Bookings.
func (s *Store) CreateBooking(ctx context.Context, b model.Booking, th model.Thread, msgs ...model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return duplicate("booking", b.ID)
	}
	if _, ok := s.threads[th.ID]; ok {
		return duplicate("thread", th.ID)
	}
	for _, m := range msgs {
		if m.ThreadID != th.ID {
			return fmt.Errorf("memory: message %s belongs to thread %s, not %s", m.ID, m.ThreadID, th.ID)
		}
	}
	s.bookings[b.ID] = b
	s.bookingOrder = append(s.bookingOrder, b.ID)
	s.threads[th.ID] = th
	if len(msgs) > 0 {
		s.messages[th.ID] = append(s.messages[th.ID], msgs...)
	}
	return nil
}

// Booking implements repository.Bookings.
func (s *Store) Booking(ctx context.Context, id string) (model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, notFound("booking", id)
	}
	return b, nil
}

// UpdateBooking implements repository.Bookings.
func (s *Store) UpdateBooking(ctx context.Context, b model.Booking, msgs ...model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return notFound("booking", b.ID)
	}
	for _, m := range msgs {
		if _, ok := s.threads[m.ThreadID]; !ok {
			return notFound("thread", m.ThreadID)
		}
	}
	s.bookings[b.ID] = b
	for _, m := range msgs {
		s.messages[m.ThreadID] = append(s.messages[m.ThreadID], m)
	}
	return nil
}

// ListBookings implements repository.Bookings.
func (s *Store) ListBookings(ctx context.Context) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0, len(s.bookingOrder))
	for _, id := range s.bookingOrder {
		out = append(out, s.bookings[id])
	}
	return out, nil
}

// Thread implements repository.Bookings.
func (s *Store) Thread(ctx context.Context, id string) (model.Thread, error) {
	if err := ctx.Err(); err != nil {
		return model.Thread{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[id]
	if !ok {
		return model.Thread{}, notFound("thread", id)
	}
	return th, nil
}

// AppendMessage implements repository.Messages.
func (s *Store) AppendMessage(ctx context.Context, m model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[m.ThreadID]; !ok {
		return notFound("thread", m.ThreadID)
	}
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], m)
	return nil
}

// Messages implements repository.Messages.
func (s *Store) Messages(ctx context.Context, threadID string) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Message(nil), s.messages[threadID]...), nil
}

// GetOrCreateDMThread implements repository.DirectMessages.
func (s *Store) GetOrCreateDMThread(ctx context.Context, key string, newThread func() model.DMThread) (model.DMThread, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.DMThread{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.dmByPair[key]; ok {
		return s.dmThreads[id], false, nil
	}
	th := newThread()
	s.dmThreads[th.ID] = th
	s.dmByPair[key] = th.ID
	return th, true, nil
}

// DMThread implements repository.DirectMessages.
func (s *Store) DMThread(ctx context.Context, id string) (model.DMThread, error) {
	if err := ctx.Err(); err != nil {
		return model.DMThread{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.dmThreads[id]
	if !ok {
		return model.DMThread{}, notFound("dm thread", id)
	}
	return th, nil
}

// DMThreadsForUser implements repository.DirectMessages. Threads are ordered by
// last activity, newest first.
func (s *Store) DMThreadsForUser(ctx context.Context, userID string) ([]model.DMThread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DMThread
	for _, th := range s.dmThreads {
		if th.HasMember(userID) {
			out = append(out, th)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// AppendDMMessage implements repository.DirectMessages and bumps the thread's
// UpdatedAt.
func (s *Store) AppendDMMessage(ctx context.Context, m model.DMMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.dmThreads[m.ThreadID]
	if !ok {
		return notFound("dm thread", m.ThreadID)
	}
	s.dmMessages[m.ThreadID] = append(s.dmMessages[m.ThreadID], m)
	if m.TS.After(th.UpdatedAt) {
		th.UpdatedAt = m.TS
		s.dmThreads[th.ID] = th
	}
	return nil
}

// DMMessages implements repository.DirectMessages.
func (s *Store) DMMessages(ctx context.Context, threadID string) ([]model.DMMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.DMMessage(nil), s.dmMessages[threadID]...), nil
}

// CreateUser implements repository.Users.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return duplicate("user", u.ID)
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

// User implements repository.Users.
func (s *Store) User(ctx context.Context, id string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, notFound("user", id)
	}
	return u, nil
}

// UpdateUser implements repository.Users.
func (s *Store) UpdateUser(ctx context.Context, u model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	s.users[u.ID] = u
	return nil
}

// ListUsers implements repository.Users.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

// CreateFlag implements repository.Flags.
func (s *Store) CreateFlag(ctx context.Context, f model.Flag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[f.ID]; ok {
		return duplicate("flag", f.ID)
	}
	s.flags[f.ID] = f
	s.flagOrder = append(s.flagOrder, f.ID)
	return nil
}

// FlagByShipment implements repository.Flags and returns the first flag raised
// on the shipment.
func (s *Store) FlagByShipment(ctx context.Context, shipmentID string) (model.Flag, error) {
	if err := ctx.Err(); err != nil {
		return model.Flag{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.flagOrder {
		if f := s.flags[id]; f.ShipmentID == shipmentID {
			return f, nil
		}
	}
	return model.Flag{}, notFound("flag for shipment", shipmentID)
}

// UpdateFlag implements repository.Flags.
func (s *Store) UpdateFlag(ctx context.Context, f model.Flag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[f.ID]; !ok {
		return notFound("flag", f.ID)
	}
	s.flags[f.ID] = f
	return nil
}

// ListFlags implements repository.Flags.
func (s *Store) ListFlags(ctx context.Context) ([]model.Flag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Flag, 0, len(s.flagOrder))
	for _, id := range s.flagOrder {
		out = append(out, s.flags[id])
	}
	return out, nil
}

// Counts implements repository.Repository.
func (s *Store) Counts(ctx context.Context) (model.Counts, error) {
	if err := ctx.Err(); err != nil {
		return model.Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := model.Counts{
		Shipments: len(s.shipments),
		Quotes:    len(s.quotes),
		Bookings:  len(s.bookings),
		Users:     len(s.users),
		Flags:     len(s.flags),
	}
	for _, u := range s.users {
		if u.PendingKYB() {
			c.PendingKYB++
		}
	}
	return c, nil
}

// Wipe implements repository.Repository.
func (s *Store) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	return nil
}
