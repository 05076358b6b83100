package model

import (
	"sort"
	"strings"
	"time"
)

// Role is the marketplace persona of a user.
type Role string

const (
	RoleShipper     Role = "shipper"
	RoleTransporter Role = "transporter"
	RoleAdmin       Role = "admin"
)

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(s)); r {
	case RoleShipper, RoleTransporter, RoleAdmin:
		return r, true
	}
	return "", false
}

// User is a marketplace participant.
type User struct {
	ID        string    `json:"id" yaml:"-"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Role      Role      `json:"role" yaml:"role"`
	Verified  bool      `json:"verified" yaml:"verified"`
	Banned    bool      `json:"banned" yaml:"banned"`
	Insurance string    `json:"insurance,omitempty" yaml:"insurance"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// PendingKYB reports whether the user is a transporter awaiting verification.
func (u User) PendingKYB() bool {
	return u.Role == RoleTransporter && !u.Verified && !u.Banned
}

// DMThread is a private conversation between two users.
type DMThread struct {
	ID        string    `json:"id"`
	Members   [2]string `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the thread.
func (t DMThread) HasMember(userID string) bool {
	return userID != "" && (t.Members[0] == userID || t.Members[1] == userID)
}

// Peer returns the other member of the thread.
func (t DMThread) Peer(userID string) string {
	if t.Members[0] == userID {
		return t.Members[1]
	}
	return t.Members[0]
}

// DMMessage is an entry of a DM thread.
type DMMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text"`
	TS       time.Time `json:"ts"`
}

// PairKey returns the order independent key of a user pair and the sorted members.
func PairKey(a, b string) (string, [2]string) {
	m := []string{a, b}
	sort.Strings(m)
	return m[0] + "|" + m[1], [2]string{m[0], m[1]}
}

// Actor identifies the caller of a marketplace operation. The zero value is
// an anonymous caller.
type Actor struct {
	UserID string
	Role   Role
}

// Label names the actor in audit entries: its user id, else its role, else fallback.
func (a Actor) Label(fallback string) string {
	switch {
	case a.UserID != "":
		return a.UserID
	case a.Role != "":
		return string(a.Role)
	}
	return fallback
}
