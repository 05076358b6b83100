package marketplace

import (
	"context"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// UpdateBookingStatus moves a booking to status. Any recognised status is
// accepted from any other. DELIVERED and CANCELLED are mirrored onto the
// shipment while it is BOOKED.
func (s *Service) UpdateBookingStatus(ctx context.Context, actor model.Actor, bookingID, status string) (model.BookingView, error) {
	b, err := s.repo.Booking(ctx, bookingID)
	if err != nil {
		return model.BookingView{}, lookup(err, "booking not found")
	}
	next, ok := model.ParseBookingStatus(status)
	if !ok {
		return model.BookingView{}, apperr.Validation("invalid status: %s", status)
	}

	unlock := s.locks.Lock(b.ShipmentID)
	defer unlock()
	if b, err = s.repo.Booking(ctx, bookingID); err != nil {
		return model.BookingView{}, lookup(err, "booking not found")
	}
	var shp *model.Shipment
	sh, err := s.repo.Shipment(ctx, b.ShipmentID)
	switch {
	case err == nil:
		shp = &sh
	case !isNotFound(err):
		return model.BookingView{}, storeErr("load shipment", err)
	}

	// The shipment mirror, the booking and its system message land together
	// or not at all, whatever happens to the caller.
	wctx := context.WithoutCancel(ctx)
	var undo undoLog
	if target, terminal := next.ShipmentStatus(); shp != nil && terminal && shp.Status.CanTransition(target) {
		prev := *shp
		shp.Status = target
		if err := s.repo.UpdateShipment(wctx, *shp); err != nil {
			return model.BookingView{}, storeErr("mirror shipment status", err)
		}
		undo.add("restore shipment "+prev.ID, func() error { return s.repo.UpdateShipment(wctx, prev) })
	}

	now := s.clock()
	b.Status = next
	b.UpdatedAt = now
	msg := model.Message{
		ID:         s.ids.Next(ids.Message),
		ThreadID:   b.ThreadID,
		SenderRole: model.SenderSystem,
		Text:       model.StatusText(next),
		TS:         now,
	}
	if err := s.repo.UpdateBooking(wctx, b, msg); err != nil {
		return model.BookingView{}, undo.run(s.log, storeErr("update booking", err))
	}

	s.audit.Record(wctx, actor.Label(string(model.RoleTransporter)), audit.TypeStatus, b.ID, "Set status to "+string(next))
	view := model.NewBookingView(b, shp)
	s.pub.EmitPublic(events.BookingUpdate, view)
	return view, nil
}

// OnPaymentCaptured marks a booking as paid. Repeated captures only re-announce
// the booking.
func (s *Service) OnPaymentCaptured(ctx context.Context, bookingID string) (model.BookingView, error) {
	b, err := s.repo.Booking(ctx, bookingID)
	if err != nil {
		return model.BookingView{}, lookup(err, "booking not found")
	}
	unlock := s.locks.Lock(b.ShipmentID)
	defer unlock()
	if b, err = s.repo.Booking(ctx, bookingID); err != nil {
		return model.BookingView{}, lookup(err, "booking not found")
	}
	if !b.Paid {
		b.Paid = true
		b.UpdatedAt = s.clock()
		if err := s.repo.UpdateBooking(context.WithoutCancel(ctx), b); err != nil {
			return model.BookingView{}, storeErr("mark booking paid", err)
		}
		s.audit.Record(ctx, "payments", audit.TypePayment, b.ID, "Payment captured")
	}
	view := s.bookingView(ctx, b)
	s.pub.EmitPublic(events.BookingUpdate, view)
	return view, nil
}
