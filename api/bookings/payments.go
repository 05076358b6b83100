package bookings

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/kilianp07/freightmarket/api/respond"
	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/marketplace"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Payment-Signature"

// PaymentsConfig secures the payment callback.
type PaymentsConfig struct {
	// WebhookSecret enables signature checks when set.
	WebhookSecret string `json:"webhook_secret"`
}

// Sign returns the signature expected for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// NewPaymentHandler marks a booking paid via POST /api/payments/captured.
func NewPaymentHandler(svc *marketplace.Service, cfg PaymentsConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, respond.MaxBodyBytes))
		if err != nil {
			respond.Error(w, r, apperr.Validation("request body too large"))
			return
		}
		if cfg.WebhookSecret != "" {
			got, err := hex.DecodeString(r.Header.Get(SignatureHeader))
			want, _ := hex.DecodeString(Sign(cfg.WebhookSecret, body))
			if err != nil || !hmac.Equal(got, want) {
				respond.Error(w, r, apperr.Unauthorized("invalid payment signature"))
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		var in struct {
			BookingID string `json:"bookingId"`
		}
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, r, err)
			return
		}
		if in.BookingID == "" {
			respond.Error(w, r, apperr.Validation("bookingId required"))
			return
		}
		v, err := svc.OnPaymentCaptured(r.Context(), in.BookingID)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.OK(w, v)
	})
}
