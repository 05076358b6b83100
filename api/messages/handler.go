// Package messages serves booking thread messages.
package messages

import (
	"net/http"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/marketplace"
)

// Register mounts the booking thread routes on mux.
func Register(mux *http.ServeMux, svc *marketplace.Service) {
	mux.Handle("GET /api/messages", NewListHandler(svc))
	mux.Handle("POST /api/messages", NewPostHandler(svc))
}

// NewListHandler lists the messages of ?threadId= oldest first.
func NewListHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msgs, err := svc.ListMessages(r.Context(), r.URL.Query().Get("threadId"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, msgs)
	})
}

// NewPostHandler appends a message to a booking thread.
func NewPostHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in marketplace.NewMessage
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		m, err := svc.PostMessage(r.Context(), auth.ActorFrom(r.Context()), in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, m)
	})
}
