package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/config"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/factory"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	cfg := &config.Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Stream.KeepAliveSec = 1
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Audit.Store = factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": dbPath}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg, dbPath
}

func post(t *testing.T, url, token string, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

func TestServiceEndToEnd(t *testing.T) {
	cfg, dbPath := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		c, err := svc.Market.Counts(context.Background())
		return err == nil && c.Shipments == 5
	}, 5*time.Second, 20*time.Millisecond)

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, srv.URL+"/events/shipments", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	sse := bufio.NewReader(resp.Body)
	require.Equal(t, ": connected", readFrame(t, sse))

	login := post(t, srv.URL+"/auth/demo-login", "", map[string]any{"role": "shipper"})
	token := login["token"].(string)
	created := post(t, srv.URL+"/api/shipments", token, map[string]any{"pickup": "London, UK", "dropoff": "Paris, FR", "service": "pallet"})
	id := created["data"].(map[string]any)["id"].(string)
	assert.Equal(t, "load-0006", id)

	var frame string
	for i := 0; i < 5; i++ {
		if frame = readFrame(t, sse); frame != ": keep-alive" {
			break
		}
	}
	assert.True(t, strings.HasPrefix(frame, "event: shipment:new\n"), frame)
	assert.Contains(t, frame, id)

	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "marketplace_shipments_posted_total")
		return err == nil && n > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}
	require.NoError(t, svc.Close())

	store, err := audit.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	sessions, err := store.Query(context.Background(), audit.Query{Type: audit.TypeSession})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "user-0002", sessions[0].Actor)
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Realtime.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRunWithoutSeed(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Metrics.Sinks = nil
	cfg.Audit.Store = factory.ModuleConfig{}
	off := false
	cfg.Seed.OnStart = &off
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	c, err := svc.Market.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, c.Shipments)
	cancel()
	require.NoError(t, <-done)
}
