package model

import "time"

// BookingView is the denormalized booking returned to clients and carried by
// booking events.
type BookingView struct {
	Booking
	Route          string         `json:"route"`
	Pickup         string         `json:"pickup"`
	Dropoff        string         `json:"dropoff"`
	ShipmentStatus ShipmentStatus `json:"shipmentStatus"`
}

// Route formats the pickup and dropoff of a shipment.
func Route(s Shipment) string {
	return s.Pickup + " → " + s.Dropoff
}

// NewBookingView joins a booking with its shipment. A nil shipment leaves the
// route fields empty.
func NewBookingView(b Booking, s *Shipment) BookingView {
	v := BookingView{Booking: b}
	if s != nil {
		v.Route = Route(*s)
		v.Pickup = s.Pickup
		v.Dropoff = s.Dropoff
		v.ShipmentStatus = s.Status
	}
	return v
}

// QuoteSummary aggregates the prices of the live quotes of a shipment.
type QuoteSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// ShipmentDetail is a shipment with its quotes.
type ShipmentDetail struct {
	Shipment     Shipment     `json:"shipment"`
	Quotes       []Quote      `json:"quotes"`
	QuoteSummary QuoteSummary `json:"quoteSummary"`
}

// Counts summarises the store for health and admin views.
type Counts struct {
	Shipments  int `json:"shipments"`
	Quotes     int `json:"quotes"`
	Bookings   int `json:"bookings"`
	Users      int `json:"users"`
	PendingKYB int `json:"pendingKYB"`
	Flags      int `json:"flags"`
}

// UserView is the admin listing of a user.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserView projects a user for the admin listing.
func NewUserView(u User) UserView {
	status := "ACTIVE"
	if u.Banned {
		status = "BANNED"
	}
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Status: status, Verified: u.Verified, CreatedAt: u.CreatedAt}
}

// PendingVerification is a transporter waiting for a KYB decision.
type PendingVerification struct {
	UserID      string    `json:"userId"`
	CompanyName string    `json:"companyName"`
	Email       string    `json:"email"`
	Insurance   *string   `json:"insurance"`
	Status      string    `json:"status"`
	Since       time.Time `json:"since"`
}

// NewPendingVerification projects a pending transporter.
func NewPendingVerification(u User) PendingVerification {
	var ins *string
	if u.Insurance != "" {
		v := u.Insurance
		ins = &v
	}
	return PendingVerification{UserID: u.ID, CompanyName: u.Name, Email: u.Email, Insurance: ins, Status: "PENDING", Since: u.CreatedAt}
}

// TransporterView is the admin listing of a verified transporter.
type TransporterView struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	Contact   string `json:"contact"`
	Insurance string `json:"insurance"`
	Since     string `json:"since"`
	Banned    bool   `json:"banned"`
}

// NewTransporterView projects a verified transporter.
func NewTransporterView(u User) TransporterView {
	ins := u.Insurance
	if ins == "" {
		ins = "—"
	}
	return TransporterView{ID: u.ID, Company: u.Name, Contact: u.Email, Insurance: ins, Since: u.CreatedAt.Format(ReadyDateLayout), Banned: u.Banned}
}

// FlagView is a moderation flag joined with its shipment route.
type FlagView struct {
	ID         string    `json:"id"`
	ShipmentID string    `json:"shipmentId"`
	Route      string    `json:"route"`
	Reason     string    `json:"reason"`
	Reporter   string    `json:"reporter"`
	Hidden     bool      `json:"hidden"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewFlagView joins a flag with its shipment.
func NewFlagView(f Flag, s *Shipment) FlagView {
	v := FlagView{ID: f.ID, ShipmentID: f.ShipmentID, Reason: f.Reason, Reporter: f.Reporter, Hidden: f.Hidden, CreatedAt: f.CreatedAt}
	if s != nil {
		v.Route = Route(*s)
	}
	return v
}
