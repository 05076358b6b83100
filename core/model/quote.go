package model

import "time"

// QuoteStatus tracks a transporter offer.
type QuoteStatus string

const (
	QuoteActive   QuoteStatus = "ACTIVE"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

// DefaultCompanyName is used when a quote omits its company.
const DefaultCompanyName = "Transporter"

// Quote is a priced offer against an open shipment.
type Quote struct {
	ID                string      `json:"id"`
	ShipmentID        string      `json:"shipmentId"`
	CompanyName       string      `json:"companyName"`
	ContactEmail      string      `json:"contactEmail"`
	Price             float64     `json:"price"`
	EtaDays           *int        `json:"etaDays"`
	Message           string      `json:"message"`
	Status            QuoteStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	TransporterUserID string      `json:"transporterUserId,omitempty"`
}
