package events

import (
	"strings"
	"time"
)

// Event names.
const (
	ShipmentNew   = "shipment:new"
	QuoteNew      = "quote:new"
	BookingNew    = "booking:new"
	BookingUpdate = "booking:update"
	DMMessage     = "dm:message"
)

// RoomShipments is the public room every push subscriber joins.
const RoomShipments = "shipments"

const userRoomPrefix = "user:"

// UserRoom returns the private room of a user.
func UserRoom(userID string) string { return userRoomPrefix + userID }

// RoomUser extracts the user id of a private room.
func RoomUser(room string) (string, bool) {
	if !strings.HasPrefix(room, userRoomPrefix) {
		return "", false
	}
	return strings.TrimPrefix(room, userRoomPrefix), true
}

// Event is one domain event addressed to a set of rooms.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	Rooms   []string  `json:"-"`
	Public  bool      `json:"-"`
	Time    time.Time `json:"ts"`
}

// Public builds an event for the shipments room and every stream.
func Public(name string, payload any) Event {
	return Event{Name: name, Payload: payload, Rooms: []string{RoomShipments}, Public: true, Time: time.Now().UTC()}
}

// ForUsers builds an event addressed to the private rooms of userIDs.
// Duplicate and empty ids are skipped.
func ForUsers(userIDs []string, name string, payload any) Event {
	seen := make(map[string]bool, len(userIDs))
	rooms := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		rooms = append(rooms, UserRoom(id))
	}
	return Event{Name: name, Payload: payload, Rooms: rooms, Time: time.Now().UTC()}
}
