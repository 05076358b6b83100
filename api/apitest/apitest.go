// Package apitest provides fixtures shared by the HTTP handler tests.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/logger"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/core/model"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/memory"
)

// Seeded demo identities.
const (
	AdminID       = "user-0001"
	ShipperID     = "user-0002"
	TransporterID = "user-0003"
	UnverifiedID  = "user-0004"
	OtherCarrier  = "user-0005"
)

// Env is a seeded marketplace with a session manager.
type Env struct {
	Svc      *marketplace.Service
	Repo     *memory.Store
	Sessions *auth.Manager
	Pub      publisher.Publisher
}

// New returns a seeded Env. pub may be nil.
func New(t *testing.T, pub publisher.Publisher) *Env {
	t.Helper()
	repo := memory.NewStore()
	svc := marketplace.New(repo, ids.NewGenerator(), pub)
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)
	cfg := auth.Conf{Secret: "test-secret-test-secret-test-secret"}
	cfg.SetDefaults()
	sessions, err := auth.NewManager(cfg, auth.NewMemoryStore(), logger.Nop{})
	require.NoError(t, err)
	return &Env{Svc: svc, Repo: repo, Sessions: sessions, Pub: pub}
}

// Token issues a session token.
func (e *Env) Token(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, _, err := e.Sessions.Issue(context.Background(), userID, role)
	require.NoError(t, err)
	return tok
}

// Response is a recorded reply with its decoded envelope.
type Response struct {
	Code int
	Body map[string]any
	Rec  *httptest.ResponseRecorder
}

// Data returns the data key of the envelope.
func (r Response) Data() any { return r.Body["data"] }

// DataMap returns the data key as an object.
func (r Response) DataMap() map[string]any {
	m, _ := r.Body["data"].(map[string]any)
	return m
}

// DataList returns the data key as an array.
func (r Response) DataList() []any {
	l, _ := r.Body["data"].([]any)
	return l
}

// Do serves one request through h. body is JSON encoded unless it is a
// string; token, when set, is sent as a bearer token.
func Do(t *testing.T, h http.Handler, method, path string, body any, token string) Response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := Response{Code: rec.Code, Rec: rec}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &res.Body)
	}
	return res
}

// Emitted is one event captured by Recorder.
type Emitted struct {
	Name    string
	Users   []string
	Public  bool
	Payload any
}

// Recorder is a publisher that keeps every emitted event.
type Recorder struct {
	mu     sync.Mutex
	events []Emitted
}

func (r *Recorder) EmitPublic(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Name: name, Public: true, Payload: payload})
}

func (r *Recorder) EmitToUsers(userIDs []string, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Name: name, Users: append([]string(nil), userIDs...), Payload: payload})
}

// Named returns the captured events called name.
func (r *Recorder) Named(name string) []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Emitted
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
