// Package auth issues and validates demo session tokens.
//
// Tokens are HS256 JWTs carrying the user id (sub), the role and a session id
// (jti). A token is only accepted while its session id is active in the
// SessionStore, so logout revokes it server side.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kilianp07/freightmarket/core/logger"
	"github.com/kilianp07/freightmarket/core/model"
)

var (
	// ErrInvalidToken signals a malformed, forged or expired token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrRevoked signals a token whose session was closed.
	ErrRevoked = errors.New("auth: session revoked")
)

// Principal is the resolved caller of a request.
type Principal struct {
	UserID    string
	Role      model.Role
	SessionID string
	ExpiresAt time.Time
}

// Actor converts the principal for marketplace operations.
func (p Principal) Actor() model.Actor {
	return model.Actor{UserID: p.UserID, Role: p.Role}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and validates session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	store  SessionStore
	log    logger.Logger
	now    func() time.Time
}

// NewManager creates a Manager. cfg must have its defaults applied.
func NewManager(cfg Conf, store SessionStore, log logger.Logger) (*Manager, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("auth: generate secret: %w", err)
		}
		log.Warnf("no session secret configured, sessions will not survive a restart")
	}
	return &Manager{
		secret: secret,
		ttl:    cfg.TTL(),
		cookie: cfg.CookieName,
		secure: cfg.SecureCookie,
		store:  store,
		log:    log,
		now:    time.Now,
	}, nil
}

// Issue opens a session for the user and returns its signed token.
func (m *Manager) Issue(ctx context.Context, userID string, role model.Role) (string, Principal, error) {
	now := m.now()
	p := Principal{UserID: userID, Role: role, SessionID: uuid.NewString(), ExpiresAt: now.Add(m.ttl)}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        p.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", Principal{}, fmt.Errorf("auth: sign token: %w", err)
	}
	if err := m.store.Add(ctx, p.SessionID, p.ExpiresAt); err != nil {
		return "", Principal{}, fmt.Errorf("auth: store session: %w", err)
	}
	return signed, p, nil
}

// Validate parses a token and checks its session is still active.
func (m *Manager) Validate(ctx context.Context, token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, ok := model.ParseRole(c.Role)
	if !ok || c.Subject == "" || c.ID == "" {
		return Principal{}, ErrInvalidToken
	}
	active, err := m.store.Active(ctx, c.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: session lookup: %w", err)
	}
	if !active {
		return Principal{}, ErrRevoked
	}
	return Principal{UserID: c.Subject, Role: role, SessionID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Revoke closes the session of p.
func (m *Manager) Revoke(ctx context.Context, p Principal) error {
	if p.SessionID == "" {
		return nil
	}
	return m.store.Revoke(ctx, p.SessionID)
}

// TokenFromRequest extracts the token from the Authorization header or the
// session cookie.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(m.cookie); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie stores token in the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware resolves the principal of each request. Requests without a
// valid token continue anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := m.TokenFromRequest(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.Validate(r.Context(), tok)
		if err != nil {
			m.log.Debugf("ignoring session token: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached to ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ActorFrom returns the marketplace actor of ctx, anonymous when no principal
// is attached.
func ActorFrom(ctx context.Context) model.Actor {
	p, _ := FromContext(ctx)
	return p.Actor()
}
