// Package system serves health, demo seeding and the demo session routes.
package system

import (
	"net/http"
	"time"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/core/model"
)

// Handler groups the system routes.
type Handler struct {
	svc      *marketplace.Service
	sessions *auth.Manager
	started  time.Time
	now      func() time.Time
}

// New returns a Handler reporting uptime from now.
func New(svc *marketplace.Service, sessions *auth.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions, started: time.Now(), now: time.Now}
}

// Register mounts the system routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /seed", h.seed)
	mux.HandleFunc("POST /auth/demo-login", h.login)
	mux.HandleFunc("POST /auth/logout", h.logout)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	now := h.now()
	respond.With(w, nil, map[string]any{
		"ts":     now.UTC(),
		"uptime": now.Sub(h.started).Seconds(),
		"counts": counts,
	})
}

func (h *Handler) seed(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Seed(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.With(w, nil, map[string]any{
		"message": "Seeded demo data",
		"counts":  res.Counts,
		"users":   res.Users,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role   string `json:"role"`
		UserID string `json:"userId"`
	}
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		respond.Error(w, r, apperr.Validation("role must be shipper|transporter|admin"))
		return
	}
	u, err := h.svc.ResolveLoginUser(r.Context(), role, in.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	token, p, err := h.sessions.Issue(r.Context(), u.ID, u.Role)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.sessions.SetCookie(w, token, p.ExpiresAt)
	h.svc.AuditLog().Record(r.Context(), u.ID, audit.TypeSession, u.ID, "Demo login as "+string(u.Role))
	respond.With(w, u, map[string]any{"token": token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Revoke(r.Context(), p); err != nil {
			respond.Error(w, r, err)
			return
		}
		h.svc.AuditLog().Record(r.Context(), p.UserID, audit.TypeSession, p.UserID, "Logged out")
	}
	h.sessions.ClearCookie(w)
	respond.With(w, nil, nil)
}
