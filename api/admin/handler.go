// Package admin serves the moderation console: KYB verification, bans,
// flagged shipments, audit logs and the demo wipe.
package admin

import (
	"net/http"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/core/model"
)

// Register mounts the admin routes on mux. With requireAdmin every route
// needs an admin session.
func Register(mux *http.ServeMux, svc *marketplace.Service, requireAdmin bool) {
	guard := func(h http.Handler) http.Handler {
		if requireAdmin {
			return RequireAdmin(h)
		}
		return h
	}
	mux.Handle("GET /api/admin/metrics", guard(NewMetricsHandler(svc)))
	mux.Handle("GET /api/admin/verify", guard(NewPendingHandler(svc)))
	mux.Handle("POST /api/admin/verify/{userId}", guard(NewVerifyHandler(svc)))
	mux.Handle("GET /api/admin/users", guard(NewUsersHandler(svc)))
	mux.Handle("POST /api/admin/users/{userId}/ban", guard(NewBanHandler(svc)))
	mux.Handle("GET /api/admin/transporters", guard(NewTransportersHandler(svc)))
	mux.Handle("GET /api/admin/flagged", guard(NewFlaggedHandler(svc)))
	mux.Handle("POST /api/admin/flagged/{shipmentId}/hide", guard(NewHideHandler(svc)))
	mux.Handle("GET /api/admin/logs", guard(NewLogsHandler(svc)))
	mux.Handle("DELETE /api/admin/wipe", guard(NewWipeHandler(svc)))
}

// RequireAdmin rejects anonymous callers with 401 and non admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			respond.Error(w, r, apperr.Unauthorized("login required"))
			return
		}
		if p.Role != model.RoleAdmin {
			respond.Error(w, r, apperr.Forbidden("admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// list adapts a listing operation to a handler.
func list[T any](fn func(r *http.Request) (T, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, v)
	})
}

func NewMetricsHandler(svc *marketplace.Service) http.Handler {
	return list(func(r *http.Request) (model.Counts, error) { return svc.Counts(r.Context()) })
}

func NewPendingHandler(svc *marketplace.Service) http.Handler {
	return list(func(r *http.Request) ([]model.PendingVerification, error) {
		return svc.PendingVerifications(r.Context())
	})
}

func NewUsersHandler(svc *marketplace.Service) http.Handler {
	return list(func(r *http.Request) ([]model.UserView, error) { return svc.Users(r.Context()) })
}

func NewTransportersHandler(svc *marketplace.Service) http.Handler {
	return list(func(r *http.Request) ([]model.TransporterView, error) { return svc.Transporters(r.Context()) })
}

func NewFlaggedHandler(svc *marketplace.Service) http.Handler {
	return list(func(r *http.Request) ([]model.FlagView, error) { return svc.Flagged(r.Context()) })
}

// NewVerifyHandler records an approve or reject decision.
func NewVerifyHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Decision string `json:"decision"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		res, err := svc.Verify(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("userId"), in.Decision)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, res)
	})
}

// NewBanHandler bans or reinstates a user. A missing ban field bans.
func NewBanHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Ban *bool `json:"ban"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		ban := in.Ban == nil || *in.Ban
		res, err := svc.SetBanned(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("userId"), ban)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, res)
	})
}

// NewHideHandler hides or restores a flagged shipment. A missing hide field
// hides.
func NewHideHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Hide *bool `json:"hide"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		hide := in.Hide == nil || *in.Hide
		res, err := svc.SetHidden(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("shipmentId"), hide)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, res)
	})
}

// NewLogsHandler returns the newest audit entries.
func NewLogsHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := respond.IntParam(r, "limit")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, svc.Logs(limit))
	})
}

// NewWipeHandler removes every record.
func NewWipeHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Wipe(r.Context(), auth.ActorFrom(r.Context())); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.With(w, nil, map[string]any{"message": "All demo data wiped"})
	})
}
