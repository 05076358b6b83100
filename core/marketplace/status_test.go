package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/model"
)

func bookedShipment(t *testing.T, env *fixtureEnv) (model.Shipment, Acceptance) {
	t.Helper()
	sh := openShipment(t, env)
	q, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 100})
	require.NoError(t, err)
	acc, err := env.svc.AcceptQuote(env.ctx, model.Actor{}, q.ID)
	require.NoError(t, err)
	return sh, acc
}

func TestUpdateBookingStatusInvalid(t *testing.T) {
	env := newEnv(t)
	_, acc := bookedShipment(t, env)
	before, err := env.repo.Booking(env.ctx, acc.Booking.ID)
	require.NoError(t, err)

	_, err = env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, acc.Booking.ID, "FOO")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.EqualError(t, err, "invalid status: FOO")

	after, err := env.repo.Booking(env.ctx, acc.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	msgs, err := env.svc.ListMessages(env.ctx, acc.ThreadID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, "booking-0404", "DELIVERED")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateBookingStatusAnyToAny(t *testing.T) {
	env := newEnv(t)
	sh, acc := bookedShipment(t, env)

	for _, st := range []string{"IN_TRANSIT", "ENROUTE", "COLLECTED", "BOOKED"} {
		v, err := env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, acc.Booking.ID, st)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatus(st), v.Status)
		assert.True(t, v.UpdatedAt.After(acc.Booking.UpdatedAt))
		assert.Equal(t, model.ShipmentBooked, v.ShipmentStatus)
	}

	msgs, err := env.svc.ListMessages(env.ctx, acc.ThreadID)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "Status updated to BOOKED", msgs[4].Text)

	got, err := env.svc.Shipment(env.ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentBooked, got.Status)
	assert.Equal(t, events.BookingUpdate, env.pub.publicNames()[len(env.pub.publicNames())-1])
}

func TestShipmentStatusNeverReverses(t *testing.T) {
	env := newEnv(t)
	sh, acc := bookedShipment(t, env)

	v, err := env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, acc.Booking.ID, "DELIVERED")
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentDelivered, v.ShipmentStatus)

	for _, st := range []string{"CANCELLED", "BOOKED", "IN_TRANSIT"} {
		_, err := env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, acc.Booking.ID, st)
		require.NoError(t, err)
		got, err := env.svc.Shipment(env.ctx, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ShipmentDelivered, got.Status, "after %s", st)
	}

	other, acc2 := bookedShipment(t, env)
	v, err = env.svc.UpdateBookingStatus(env.ctx, model.Actor{}, acc2.Booking.ID, "CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentCancelled, v.ShipmentStatus)
	got, err := env.svc.Shipment(env.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentCancelled, got.Status)
}

func TestOnPaymentCaptured(t *testing.T) {
	env := newEnv(t)
	_, acc := bookedShipment(t, env)

	v, err := env.svc.OnPaymentCaptured(env.ctx, acc.Booking.ID)
	require.NoError(t, err)
	assert.True(t, v.Paid)
	assert.Equal(t, "London → Paris", v.Route)
	updated := v.UpdatedAt

	v, err = env.svc.OnPaymentCaptured(env.ctx, acc.Booking.ID)
	require.NoError(t, err)
	assert.True(t, v.Paid)
	assert.Equal(t, updated, v.UpdatedAt)

	names := env.pub.publicNames()
	assert.Equal(t, []string{events.BookingUpdate, events.BookingUpdate}, names[len(names)-2:])

	payments := 0
	for _, e := range env.svc.Logs(0) {
		if e.Type == "payment" {
			payments++
		}
	}
	assert.Equal(t, 1, payments)

	_, err = env.svc.OnPaymentCaptured(env.ctx, "booking-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
