// Package dm serves direct messages between users. Every route requires a
// session.
package dm

import (
	"net/http"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/marketplace"
)

// Register mounts the direct message routes on mux.
func Register(mux *http.ServeMux, svc *marketplace.Service) {
	mux.Handle("GET /api/dm/threads", NewThreadsHandler(svc))
	mux.Handle("POST /api/dm/threads", NewOpenHandler(svc))
	mux.Handle("GET /api/dm/messages", NewMessagesHandler(svc))
	mux.Handle("POST /api/dm/messages", NewSendHandler(svc))
}

// NewThreadsHandler lists the threads of the caller.
func NewThreadsHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		threads, err := svc.ListDMThreads(r.Context(), auth.ActorFrom(r.Context()))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, threads)
	})
}

// NewOpenHandler opens or returns the thread with peerId.
func NewOpenHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			PeerID string `json:"peerId"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		th, err := svc.OpenDMThread(r.Context(), auth.ActorFrom(r.Context()), in.PeerID)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, th)
	})
}

// NewMessagesHandler lists the messages of ?threadId=.
func NewMessagesHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msgs, err := svc.ListDMMessages(r.Context(), auth.ActorFrom(r.Context()), r.URL.Query().Get("threadId"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, msgs)
	})
}

// NewSendHandler sends a message by thread or by peer.
func NewSendHandler(svc *marketplace.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in marketplace.SendDM
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		m, err := svc.SendDirectMessage(r.Context(), auth.ActorFrom(r.Context()), in)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, m)
	})
}
