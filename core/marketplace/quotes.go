package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/logger"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/model"
)

// NewQuote holds the transporter supplied fields of a quote.
type NewQuote struct {
	CompanyName       string  `json:"companyName"`
	ContactEmail      string  `json:"contactEmail"`
	Price             float64 `json:"price"`
	EtaDays           *int    `json:"etaDays"`
	Message           string  `json:"message"`
	TransporterUserID string  `json:"transporterUserId"`
}

func (n NewQuote) validate() error {
	if n.Price < 0 {
		return apperr.Validation("price must not be negative")
	}
	if n.EtaDays != nil && *n.EtaDays < 0 {
		return apperr.Validation("etaDays must not be negative")
	}
	return nil
}

// Acceptance is the result of accepting a quote.
type Acceptance struct {
	Booking  model.BookingView `json:"booking"`
	ThreadID string            `json:"threadId"`
}

// SubmitQuote stores an ACTIVE quote on an OPEN shipment.
func (s *Service) SubmitQuote(ctx context.Context, actor model.Actor, shipmentID string, in NewQuote) (model.Quote, error) {
	unlock := s.locks.Lock(shipmentID)
	defer unlock()

	sh, err := s.repo.Shipment(ctx, shipmentID)
	if err != nil {
		return model.Quote{}, lookup(err, "shipment not found")
	}
	if sh.Status != model.ShipmentOpen {
		return model.Quote{}, apperr.Conflict("shipment is not open for quotes")
	}
	if err := in.validate(); err != nil {
		return model.Quote{}, err
	}
	company := strings.TrimSpace(in.CompanyName)
	if company == "" {
		company = model.DefaultCompanyName
	}
	transporter := in.TransporterUserID
	if actor.Role == model.RoleTransporter && actor.UserID != "" {
		transporter = actor.UserID
	}
	q := model.Quote{
		ID:                s.ids.Next(ids.Quote),
		ShipmentID:        shipmentID,
		CompanyName:       company,
		ContactEmail:      strings.TrimSpace(in.ContactEmail),
		Price:             in.Price,
		EtaDays:           in.EtaDays,
		Message:           in.Message,
		Status:            model.QuoteActive,
		CreatedAt:         s.clock(),
		TransporterUserID: transporter,
	}
	if err := s.repo.CreateQuote(ctx, q); err != nil {
		return model.Quote{}, storeErr("create quote", err)
	}
	s.audit.Record(ctx, actor.Label(string(model.RoleTransporter)), audit.TypeQuote, q.ID, "Submitted quote for "+shipmentID)
	s.pub.EmitPublic(events.QuoteNew, q)
	return q, nil
}

// ListQuotes returns the quotes of a shipment, newest first.
func (s *Service) ListQuotes(ctx context.Context, shipmentID string) ([]model.Quote, error) {
	if _, err := s.Shipment(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.quotesNewestFirst(ctx, shipmentID)
}

func (s *Service) quotesNewestFirst(ctx context.Context, shipmentID string) ([]model.Quote, error) {
	quotes, err := s.repo.QuotesByShipment(ctx, shipmentID)
	if err != nil {
		return nil, storeErr("list quotes", err)
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
		}
		return ids.Compare(quotes[i].ID, quotes[j].ID) > 0
	})
	return quotes, nil
}

// AcceptQuote accepts a quote, rejects its ACTIVE competitors, books the
// shipment and creates the booking with its thread.
func (s *Service) AcceptQuote(ctx context.Context, actor model.Actor, quoteID string) (Acceptance, error) {
	q, err := s.repo.Quote(ctx, quoteID)
	if err != nil {
		return Acceptance{}, lookup(err, "quote not found")
	}
	return s.accept(ctx, actor, q.ShipmentID, quoteID)
}

// AcceptShipmentQuote is AcceptQuote for a quote addressed through its
// shipment. A quote of another shipment is reported as not found.
func (s *Service) AcceptShipmentQuote(ctx context.Context, actor model.Actor, shipmentID, quoteID string) (Acceptance, error) {
	q, err := s.repo.Quote(ctx, quoteID)
	if err != nil {
		return Acceptance{}, lookup(err, "quote not found")
	}
	if q.ShipmentID != shipmentID {
		return Acceptance{}, apperr.NotFound("quote not found")
	}
	return s.accept(ctx, actor, shipmentID, quoteID)
}

func (s *Service) accept(ctx context.Context, actor model.Actor, shipmentID, quoteID string) (res Acceptance, err error) {
	start := time.Now()
	rejected := 0
	defer func() {
		ev := coremetrics.AcceptanceEvent{
			ShipmentID: shipmentID,
			QuoteID:    quoteID,
			Rejected:   rejected,
			Conflict:   errors.Is(err, apperr.ErrConflict),
			Duration:   time.Since(start),
		}
		if rerr := s.acc.RecordAcceptance(ev); rerr != nil {
			s.log.Errorf("acceptance metrics error: %v", rerr)
		}
	}()

	unlock := s.locks.Lock(shipmentID)
	defer unlock()

	q, err := s.repo.Quote(ctx, quoteID)
	if err != nil {
		return Acceptance{}, lookup(err, "quote not found")
	}
	sh, err := s.repo.Shipment(ctx, shipmentID)
	if err != nil {
		return Acceptance{}, lookup(err, "shipment not found")
	}
	if sh.Status != model.ShipmentOpen {
		return Acceptance{}, apperr.Conflict("shipment not open")
	}
	// An ACCEPTED quote on an OPEN shipment is an acceptance that never
	// completed; accepting it again finishes the job.
	if q.Status != model.QuoteActive && q.Status != model.QuoteAccepted {
		return Acceptance{}, apperr.Conflict("quote is %s", strings.ToLower(string(q.Status)))
	}

	// From the first write on, the caller going away must not stop the
	// transition halfway. A failing step undoes the earlier ones instead.
	wctx := context.WithoutCancel(ctx)
	others, err := s.repo.QuotesByShipment(wctx, shipmentID)
	if err != nil {
		return Acceptance{}, storeErr("list quotes", err)
	}
	var undo undoLog
	if q.Status != model.QuoteAccepted {
		prev := q
		q.Status = model.QuoteAccepted
		if err := s.repo.UpdateQuote(wctx, q); err != nil {
			return Acceptance{}, storeErr("accept quote", err)
		}
		undo.add("restore quote "+prev.ID, func() error { return s.repo.UpdateQuote(wctx, prev) })
	}
	for _, o := range others {
		if o.ID == q.ID || (o.Status != model.QuoteActive && o.Status != model.QuoteAccepted) {
			continue
		}
		prev := o
		o.Status = model.QuoteRejected
		if err := s.repo.UpdateQuote(wctx, o); err != nil {
			return Acceptance{}, undo.run(s.log, storeErr(fmt.Sprintf("reject quote %s", o.ID), err))
		}
		undo.add("restore quote "+prev.ID, func() error { return s.repo.UpdateQuote(wctx, prev) })
		rejected++
	}

	prevSh := sh
	sh.Status = model.ShipmentBooked
	if err := s.repo.UpdateShipment(wctx, sh); err != nil {
		return Acceptance{}, undo.run(s.log, storeErr("book shipment", err))
	}
	undo.add("reopen shipment "+sh.ID, func() error { return s.repo.UpdateShipment(wctx, prevSh) })

	res, err = s.createBooking(wctx, actor, sh, q)
	if err != nil {
		return Acceptance{}, undo.run(s.log, err)
	}
	return res, nil
}

// undoLog collects compensating writes, replayed newest first when a later
// step of a transition fails.
type undoLog []undoStep

type undoStep struct {
	name string
	fn   func() error
}

func (u *undoLog) add(name string, fn func() error) { *u = append(*u, undoStep{name, fn}) }

// run replays the steps and returns cause.
func (u undoLog) run(log logger.Logger, cause error) error {
	for i := len(u) - 1; i >= 0; i-- {
		if err := u[i].fn(); err != nil {
			log.Errorf("undo %s after %v: %v", u[i].name, cause, err)
		}
	}
	return cause
}
