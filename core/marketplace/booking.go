package marketplace

import (
	"context"
	"sort"

	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// createBooking is the only producer of bookings. It stores the booking, its
// thread and the welcome message in one write, then announces the booking.
// sh must already be BOOKED and q ACCEPTED.
func (s *Service) createBooking(ctx context.Context, actor model.Actor, sh model.Shipment, q model.Quote) (Acceptance, error) {
	now := s.clock()
	th := model.Thread{ID: s.ids.Next(ids.Thread), CreatedAt: now}
	b := model.Booking{
		ID:                 s.ids.Next(ids.Booking),
		ShipmentID:         sh.ID,
		QuoteID:            q.ID,
		TransporterCompany: q.CompanyName,
		Price:              q.Price,
		Status:             model.BookingBooked,
		ThreadID:           th.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	th.BookingID = b.ID
	welcome := model.Message{
		ID:         s.ids.Next(ids.Message),
		ThreadID:   th.ID,
		SenderRole: model.SenderSystem,
		Text:       model.WelcomeText(sh.ID),
		TS:         now,
	}
	if err := s.repo.CreateBooking(ctx, b, th, welcome); err != nil {
		return Acceptance{}, storeErr("create booking", err)
	}

	s.audit.Record(ctx, actor.Label(string(model.RoleShipper)), audit.TypeBooking, b.ID, "Accepted quote "+q.ID+"; booking created")
	view := model.NewBookingView(b, &sh)
	s.pub.EmitPublic(events.BookingNew, view)
	return Acceptance{Booking: view, ThreadID: th.ID}, nil
}

// ListBookings returns every booking joined with its shipment, newest first.
func (s *Service) ListBookings(ctx context.Context) ([]model.BookingView, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return ids.Compare(bookings[i].ID, bookings[j].ID) > 0
	})
	out := make([]model.BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, s.bookingView(ctx, b))
	}
	return out, nil
}

// Booking returns one booking view.
func (s *Service) Booking(ctx context.Context, id string) (model.BookingView, error) {
	b, err := s.repo.Booking(ctx, id)
	if err != nil {
		return model.BookingView{}, lookup(err, "booking not found")
	}
	return s.bookingView(ctx, b), nil
}

func (s *Service) bookingView(ctx context.Context, b model.Booking) model.BookingView {
	sh, err := s.repo.Shipment(ctx, b.ShipmentID)
	if err != nil {
		return model.NewBookingView(b, nil)
	}
	return model.NewBookingView(b, &sh)
}
