// Package shipments serves the shipment feed, quotes and acceptance.
package shipments

import (
	"net/http"
	"strings"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/core/model"
)

// Register mounts the shipment routes on mux.
func Register(mux *http.ServeMux, svc *marketplace.Service) {
	mux.Handle("GET /api/shipments", NewListHandler(svc))
	mux.Handle("POST /api/shipments", NewCreateHandler(svc))
	mux.Handle("GET /api/shipments/{id}", NewDetailHandler(svc))
	mux.Handle("POST /api/shipments/{id}/flag", NewFlagHandler(svc))
	mux.Handle("GET /api/shipments/{id}/quotes", NewQuotesHandler(svc))
	mux.Handle("POST /api/shipments/{id}/quotes", NewSubmitQuoteHandler(svc))
	mux.Handle("POST /api/shipments/{id}/quotes/{qid}/accept", NewAcceptHandler(svc))

	// Flat quote routes kept for older clients.
	mux.Handle("GET /api/quotes", NewQuotesByQueryHandler(svc))
	mux.Handle("POST /api/quotes", NewFlatSubmitQuoteHandler(svc))
	mux.Handle("POST /api/quotes/{id}/accept", NewAcceptQuoteHandler(svc))
}

// NewListHandler pages through the shipment feed via GET /api/shipments.
func NewListHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, p, err := parseQuery(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		page, err := svc.QueryShipments(r.Context(), f, p)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		extra := map[string]any{"nextCursor": nil}
		if page.NextCursor != "" {
			extra["nextCursor"] = page.NextCursor
		}
		respond.With(w, page.Data, extra)
	})
}

func parseQuery(r *http.Request) (marketplace.ShipmentFilter, marketplace.Page, error) {
	q := r.URL.Query()
	f := marketplace.ShipmentFilter{
		Status:          model.ShipmentStatus(strings.ToUpper(q.Get("status"))),
		PickupContains:  q.Get("pickupContains"),
		DropoffContains: q.Get("dropoffContains"),
		Service:         q.Get("service"),
		EarliestDate:    q.Get("earliestDate"),
	}
	adr, err := respond.BoolParam(r, "adr")
	if err != nil {
		return f, marketplace.Page{}, err
	}
	f.Hazardous = adr
	limit, err := respond.IntParam(r, "limit")
	if err != nil {
		return f, marketplace.Page{}, err
	}
	return f, marketplace.Page{Limit: limit, Cursor: q.Get("cursor")}, nil
}

// NewCreateHandler posts a shipment via POST /api/shipments.
func NewCreateHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in marketplace.NewShipment
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		sh, err := svc.CreateShipment(r.Context(), auth.ActorFrom(r.Context()), in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, sh)
	})
}

// NewDetailHandler returns a shipment with its quotes and price summary.
func NewDetailHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.ShipmentDetail(r.Context(), r.PathValue("id"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, d)
	})
}

// NewFlagHandler reports a shipment for moderation.
func NewFlagHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Reason string `json:"reason"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		fl, err := svc.FlagShipment(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"), in.Reason)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, fl)
	})
}

// NewQuotesHandler lists the quotes of a shipment.
func NewQuotesHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ListQuotes(r.Context(), r.PathValue("id"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, qs)
	})
}

// NewSubmitQuoteHandler quotes an open shipment.
func NewSubmitQuoteHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in marketplace.NewQuote
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		q, err := svc.SubmitQuote(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"), in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, q)
	})
}

// NewAcceptHandler accepts a quote of the shipment in the path.
func NewAcceptHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := svc.AcceptShipmentQuote(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"), r.PathValue("qid"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		WriteAcceptance(w, acc)
	})
}

// NewQuotesByQueryHandler lists quotes via GET /api/quotes?shipmentId=.
func NewQuotesByQueryHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("shipmentId")
		if id == "" {
			respond.Error(w, r, apperr.Validation("shipmentId is required"))
			return
		}
		qs, err := svc.ListQuotes(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, qs)
	})
}

// NewFlatSubmitQuoteHandler quotes the shipment named in the body.
func NewFlatSubmitQuoteHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ShipmentID string `json:"shipmentId"`
			marketplace.NewQuote
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if in.ShipmentID == "" {
			respond.Error(w, r, apperr.Validation("shipmentId is required"))
			return
		}
		q, err := svc.SubmitQuote(r.Context(), auth.ActorFrom(r.Context()), in.ShipmentID, in.NewQuote)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, q)
	})
}

// NewAcceptQuoteHandler accepts a quote by id alone.
func NewAcceptQuoteHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := svc.AcceptQuote(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		WriteAcceptance(w, acc)
	})
}

// WriteAcceptance writes {"ok":true,"data":booking,"threadId":...}.
func WriteAcceptance(w http.ResponseWriter, acc marketplace.Acceptance) {
	respond.With(w, acc.Booking, map[string]any{"threadId": acc.ThreadID})
}
