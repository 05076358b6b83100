package auth

import (
	"fmt"
	"time"
)

// Conf holds the session settings.
type Conf struct {
	// Secret signs the session tokens. A random secret is generated when empty,
	// which invalidates every session on restart.
	Secret string `json:"secret"`
	// TTLMinutes is the lifetime of a session.
	TTLMinutes int `json:"ttl_minutes"`
	// CookieName is the cookie carrying the token for browser clients.
	CookieName string `json:"cookie_name"`
	// SecureCookie marks the cookie Secure.
	SecureCookie bool `json:"secure_cookie"`
	// RequireAdmin restricts the admin endpoints to the admin role.
	RequireAdmin bool `json:"require_admin"`
}

// SetDefaults applies sane defaults.
func (c *Conf) SetDefaults() {
	if c.TTLMinutes == 0 {
		c.TTLMinutes = 12 * 60
	}
	if c.CookieName == "" {
		c.CookieName = "fm_session"
	}
}

// Validate checks the settings.
func (c Conf) Validate() error {
	if c.TTLMinutes < 0 {
		return fmt.Errorf("session: ttl_minutes must not be negative")
	}
	if c.Secret != "" && len(c.Secret) < 16 {
		return fmt.Errorf("session: secret must be at least 16 bytes")
	}
	return nil
}

// TTL returns the session lifetime.
func (c Conf) TTL() time.Duration { return time.Duration(c.TTLMinutes) * time.Minute }
