// Package bookings serves bookings, their status machine and the payment
// callback.
package bookings

import (
	"net/http"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/api/shipments"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/marketplace"
)

// Register mounts the booking routes on mux.
func Register(mux *http.ServeMux, svc *marketplace.Service, payments PaymentsConfig) {
	mux.Handle("GET /api/bookings", NewListHandler(svc))
	mux.Handle("POST /api/bookings", NewAcceptHandler(svc))
	mux.Handle("POST /api/bookings/{id}/status", NewStatusHandler(svc))
	mux.Handle("POST /api/payments/captured", NewPaymentHandler(svc, payments))
}

// NewListHandler lists booking views, newest first.
func NewListHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListBookings(r.Context())
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, list)
	})
}

// NewAcceptHandler accepts a quote by id via POST /api/bookings.
func NewAcceptHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			QuoteID string `json:"quoteId"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if in.QuoteID == "" {
			respond.Error(w, r, apperr.Validation("quoteId required"))
			return
		}
		acc, err := svc.AcceptQuote(r.Context(), auth.ActorFrom(r.Context()), in.QuoteID)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		shipments.WriteAcceptance(w, acc)
	})
}

// NewStatusHandler moves a booking to the posted status.
func NewStatusHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Status string `json:"status"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		v, err := svc.UpdateBookingStatus(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"), in.Status)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, v)
	})
}
