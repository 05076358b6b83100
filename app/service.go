package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/freightmarket/api"
	"github.com/kilianp07/freightmarket/api/bookings"
	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/config"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/ids"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	coremon "github.com/kilianp07/freightmarket/core/monitoring"
	"github.com/kilianp07/freightmarket/core/marketplace"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/logger"
	"github.com/kilianp07/freightmarket/infra/memory"
	"github.com/kilianp07/freightmarket/infra/metrics"
	"github.com/kilianp07/freightmarket/infra/monitoring"
	"github.com/kilianp07/freightmarket/infra/realtime"

	// Realtime sink factories.
	_ "github.com/kilianp07/freightmarket/infra/amqp"
	_ "github.com/kilianp07/freightmarket/infra/kafka"
	_ "github.com/kilianp07/freightmarket/infra/mqtt"
)

// Service wires the marketplace, its transports and the background workers.
type Service struct {
	Market   *marketplace.Service
	Hub      *publisher.Hub
	Rooms    *realtime.RoomHub
	Stream   *realtime.StreamHub
	Sessions *auth.Manager

	cfg     *config.Config
	sink    coremetrics.MetricsSink
	audit   *audit.Log
	handler http.Handler
	log     logger.Logger
}

// New creates a Service from the configuration. Sinks and stores created
// before a failure are released.
func New(cfg *config.Config) (svc *Service, err error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s := &Service{cfg: cfg, sink: sink, log: logg}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	store, err := audit.NewStore(cfg.Audit.Store)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	gen := ids.NewGenerator()
	opts := []audit.Option{audit.WithCapacity(cfg.Audit.Capacity)}
	if store != nil {
		opts = append(opts, audit.WithStore(store))
	}
	s.audit = audit.NewLog(gen, logger.New("audit"), opts...)

	s.Hub = publisher.NewHub(logger.New("realtime"), publisher.WithDeliveryRecorder(deliveryRecorder(sink)))
	s.Rooms = realtime.NewRoomHub(cfg.Realtime.WebSocket, subscriberRecorder(sink), logger.New("websocket"))
	s.Stream = realtime.NewStreamHub(cfg.Stream, subscriberRecorder(sink), logger.New("sse"))
	s.Hub.Register(s.Rooms, s.Stream)
	external, err := publisher.NewSinks(cfg.Realtime.Publisher().Sinks)
	if err != nil {
		return nil, fmt.Errorf("realtime sinks: %w", err)
	}
	s.Hub.Register(external...)

	s.Market = marketplace.New(memory.NewStore(), gen, s.Hub,
		marketplace.WithAuditLog(s.audit),
		marketplace.WithAcceptanceRecorder(acceptanceRecorder(sink)),
		marketplace.WithLogger(logger.New("marketplace")),
	)

	s.Sessions, err = auth.NewManager(cfg.Session, auth.NewMemoryStore(), logger.New("auth"))
	if err != nil {
		return nil, err
	}

	s.handler = api.NewRouter(api.Deps{
		Service:      s.Market,
		Sessions:     s.Sessions,
		Stream:       s.Stream,
		Rooms:        s.Rooms,
		Payments:     bookings.PaymentsConfig{WebhookSecret: cfg.Payments.WebhookSecret},
		RequireAdmin: cfg.Session.RequireAdmin,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		Log:          logger.New("http"),
	})
	return s, nil
}

// Handler returns the HTTP surface.
func (s *Service) Handler() http.Handler { return s.handler }

// Run seeds the demo data when configured, then serves until ctx is
// canceled or a worker fails.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Seed.Enabled() {
		res, err := s.Market.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		s.log.Infof("seeded demo data: %d shipments, %d users", res.Counts.Shipments, res.Counts.Users)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(guarded("http", func() error { return s.serve(ctx) }))
	g.Go(guarded("stream", func() error { return s.Stream.Run(ctx) }))
	g.Go(guarded("collector", func() error { return metrics.RunEventCollector(ctx, s.Hub.Tap(), s.sink) }))
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(guarded("prometheus", func() error { return metrics.StartPromServer(ctx, addr, nil) }))
	}
	return g.Wait()
}

// guarded reports a worker panic and hands it to the errgroup as an error.
func guarded(worker string, fn func() error) func() error {
	return func() error {
		return coremon.Guard(map[string]string{"module": "app", "worker": worker}, fn)
	}
}

func (s *Service) serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout())
	defer cancel()
	// Streams and sockets outlive Shutdown; closing the hubs ends them.
	_ = s.Stream.Close()
	_ = s.Rooms.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases the sinks, the audit store and the metrics sink, then
// flushes the monitor.
func (s *Service) Close() error {
	var errs []error
	if s.Hub != nil {
		errs = append(errs, s.Hub.Close())
	}
	if s.audit != nil {
		errs = append(errs, s.audit.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func deliveryRecorder(sink coremetrics.MetricsSink) coremetrics.DeliveryRecorder {
	if r, ok := sink.(coremetrics.DeliveryRecorder); ok {
		return r
	}
	return coremetrics.NopSink{}
}

func subscriberRecorder(sink coremetrics.MetricsSink) coremetrics.SubscriberRecorder {
	if r, ok := sink.(coremetrics.SubscriberRecorder); ok {
		return r
	}
	return coremetrics.NopSink{}
}

func acceptanceRecorder(sink coremetrics.MetricsSink) coremetrics.AcceptanceRecorder {
	if r, ok := sink.(coremetrics.AcceptanceRecorder); ok {
		return r
	}
	return coremetrics.NopSink{}
}
