// Package api assembles the HTTP surface of the marketplace.
package api

import (
	"net/http"

	"github.com/kilianp07/freightmarket/api/admin"
	"github.com/kilianp07/freightmarket/api/bookings"
	"github.com/kilianp07/freightmarket/api/dm"
	apievents "github.com/kilianp07/freightmarket/api/events"
	"github.com/kilianp07/freightmarket/api/messages"
	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/api/shipments"
	"github.com/kilianp07/freightmarket/api/system"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/logger"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/infra/realtime"
)

// Deps are the collaborators of the router. Stream and Rooms are optional;
// their routes are only mounted when set.
type Deps struct {
	Service      *marketplace.Service
	Sessions     *auth.Manager
	Stream       *realtime.StreamHub
	Rooms        *realtime.RoomHub
	Payments     bookings.PaymentsConfig
	RequireAdmin bool
	CORSOrigins  []string
	Log          logger.Logger
}

// NewRouter mounts every route behind the request id, access log, recover,
// CORS and session middlewares.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop{}
	}
	mux := http.NewServeMux()
	system.New(d.Service, d.Sessions).Register(mux)
	shipments.Register(mux, d.Service)
	bookings.Register(mux, d.Service, d.Payments)
	messages.Register(mux, d.Service)
	dm.Register(mux, d.Service)
	admin.Register(mux, d.Service, d.RequireAdmin)
	if d.Stream != nil && d.Rooms != nil {
		apievents.Register(mux, d.Stream, d.Rooms)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound("route not found"))
	})

	return Chain(mux,
		RequestID(),
		AccessLog(d.Log),
		Recover(d.Log),
		CORS(d.CORSOrigins),
		d.Sessions.Middleware,
	)
}
