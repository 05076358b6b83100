package marketplace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/model"
)

func openShipment(t *testing.T, env *fixtureEnv) model.Shipment {
	t.Helper()
	sh, err := env.svc.CreateShipment(env.ctx, model.Actor{}, NewShipment{Pickup: "London", Dropoff: "Paris"})
	require.NoError(t, err)
	return sh
}

func TestSubmitQuote(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	eta := 2

	q, err := env.svc.SubmitQuote(env.ctx, model.Actor{UserID: "user-0003", Role: model.RoleTransporter}, sh.ID, NewQuote{Price: 100, EtaDays: &eta})
	require.NoError(t, err)
	assert.Equal(t, model.QuoteActive, q.Status)
	assert.Equal(t, model.DefaultCompanyName, q.CompanyName)
	assert.Equal(t, "user-0003", q.TransporterUserID)
	assert.Equal(t, []string{events.ShipmentNew, events.QuoteNew}, env.pub.publicNames())

	_, err = env.svc.SubmitQuote(env.ctx, model.Actor{}, "load-0404", NewQuote{Price: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: -5})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	neg := -1
	_, err = env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 5, EtaDays: &neg})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	quotes, err := env.svc.ListQuotes(env.ctx, sh.ID)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	_, err = env.svc.ListQuotes(env.ctx, "load-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLondonParisScenario(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	assert.Equal(t, model.ShipmentOpen, sh.Status)

	q, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 100})
	require.NoError(t, err)
	assert.Equal(t, model.QuoteActive, q.Status)

	acc, err := env.svc.AcceptShipmentQuote(env.ctx, model.Actor{}, sh.ID, q.ID)
	require.NoError(t, err)

	got, err := env.svc.Shipment(env.ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentBooked, got.Status)

	b := acc.Booking
	assert.Equal(t, model.BookingBooked, b.Status)
	assert.Equal(t, q.ID, b.QuoteID)
	assert.Equal(t, 100.0, b.Price)
	assert.False(t, b.Paid)
	assert.Equal(t, "London → Paris", b.Route)
	assert.Equal(t, model.ShipmentBooked, b.ShipmentStatus)
	assert.Equal(t, acc.ThreadID, b.ThreadID)

	msgs, err := env.svc.ListMessages(env.ctx, acc.ThreadID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderSystem, msgs[0].SenderRole)
	assert.Equal(t, model.WelcomeText(sh.ID), msgs[0].Text)

	env.pub.mu.Lock()
	last := env.pub.public[len(env.pub.public)-1]
	env.pub.mu.Unlock()
	assert.Equal(t, events.BookingNew, last.Name)
	view, ok := last.Payload.(model.BookingView)
	require.True(t, ok)
	assert.Equal(t, b.ID, view.ID)
	assert.Equal(t, "Paris", view.Dropoff)
}

func TestAcceptRejectsCompetitors(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	other := openShipment(t, env)
	var quotes []model.Quote
	for _, p := range []float64{100, 110, 120} {
		q, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: p})
		require.NoError(t, err)
		quotes = append(quotes, q)
	}
	unrelated, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, other.ID, NewQuote{Price: 90})
	require.NoError(t, err)

	acc, err := env.svc.AcceptQuote(env.ctx, model.Actor{}, quotes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, quotes[1].ID, acc.Booking.QuoteID)

	after, err := env.svc.ListQuotes(env.ctx, sh.ID)
	require.NoError(t, err)
	accepted := 0
	for _, q := range after {
		if q.ID == quotes[1].ID {
			assert.Equal(t, model.QuoteAccepted, q.Status)
			accepted++
			continue
		}
		assert.Equal(t, model.QuoteRejected, q.Status, q.ID)
	}
	assert.Equal(t, 1, accepted)

	u, err := env.repo.Quote(env.ctx, unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteActive, u.Status)

	bookings, err := env.svc.ListBookings(env.ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, quotes[1].ID, bookings[0].QuoteID)

	require.Len(t, env.acc.got, 1)
	assert.Equal(t, 2, env.acc.got[0].Rejected)
	assert.False(t, env.acc.got[0].Conflict)
}

func TestSecondAcceptConflicts(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	q1, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 100})
	require.NoError(t, err)
	q2, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 90})
	require.NoError(t, err)

	_, err = env.svc.AcceptQuote(env.ctx, model.Actor{}, q1.ID)
	require.NoError(t, err)

	_, err = env.svc.AcceptQuote(env.ctx, model.Actor{}, q2.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.EqualError(t, err, "shipment not open")
	_, err = env.svc.AcceptQuote(env.ctx, model.Actor{}, q1.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 80})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	bookings, err := env.svc.ListBookings(env.ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	require.Len(t, env.acc.got, 3)
	assert.True(t, env.acc.got[1].Conflict)
}

func TestAcceptNotFound(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	other := openShipment(t, env)
	q, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: 100})
	require.NoError(t, err)

	_, err = env.svc.AcceptQuote(env.ctx, model.Actor{}, "quote-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.svc.AcceptShipmentQuote(env.ctx, model.Actor{}, other.ID, q.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := env.repo.Quote(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteActive, got.Status)
}

func TestConcurrentAcceptYieldsOneBooking(t *testing.T) {
	env := newEnv(t)
	sh := openShipment(t, env)
	var quotes []model.Quote
	for i := 0; i < 16; i++ {
		q, err := env.svc.SubmitQuote(env.ctx, model.Actor{}, sh.ID, NewQuote{Price: float64(100 + i)})
		require.NoError(t, err)
		quotes = append(quotes, q)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, q := range quotes {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.svc.AcceptQuote(env.ctx, model.Actor{}, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, apperr.ErrConflict):
				conflicts++
			}
		}(q.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(quotes)-1, conflicts)

	after, err := env.svc.ListQuotes(env.ctx, sh.ID)
	require.NoError(t, err)
	accepted := 0
	for _, q := range after {
		if q.Status == model.QuoteAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	bookings, err := env.svc.ListBookings(env.ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Zero(t, env.svc.locks.size())
}
