// Package events mounts the real-time transports: the public SSE stream and
// the WebSocket rooms.
package events

import (
	"net/http"

	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/infra/realtime"
)

// Register mounts GET /events/shipments and GET /ws. WebSocket clients with a
// session also join their private room.
func Register(mux *http.ServeMux, stream *realtime.StreamHub, rooms *realtime.RoomHub) {
	mux.Handle("GET /events/shipments", stream)
	mux.Handle("GET /ws", rooms.Handler(userOf))
}

func userOf(r *http.Request) string {
	return auth.ActorFrom(r.Context()).UserID
}
