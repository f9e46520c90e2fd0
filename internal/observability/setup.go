package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const namespace = "cheatlog"

// Metrics holds the ledger counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	reportsSubmitted   *prometheus.CounterVec
	verifications      *prometheus.CounterVec
	rejected           *prometheus.CounterVec
	reportsAbsolved    prometheus.Counter
	operationDuration  *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reportsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_submitted_total",
				Help:      "Reports accepted into the ledger",
			},
			[]string{"category"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Verifications recorded, split by whether they were the first for the target",
			},
			[]string{"first"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_rejected_total",
				Help:      "Submissions rejected before any write",
			},
			[]string{"reason"},
		),
		reportsAbsolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_absolved_total",
				Help:      "Reports absolved by a first verification",
			},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time spent in engine and query operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Channel notifications attempted, by outcome",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.reportsSubmitted,
		m.verifications,
		m.rejected,
		m.reportsAbsolved,
		m.operationDuration,
		m.notificationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordReport(category string) {
	if m == nil {
		return
	}
	m.reportsSubmitted.WithLabelValues(category).Inc()
}

func (m *Metrics) RecordVerification(first bool, absolved int64) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(strconv.FormatBool(first)).Inc()
	if absolved > 0 {
		m.reportsAbsolved.Add(float64(absolved))
	}
}

func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

// StartOperation returns a function that observes the elapsed time.
func (m *Metrics) StartOperation(operation string) func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.operationDuration.WithLabelValues(operation))
	return func() { timer.ObserveDuration() }
}

// SetupTracing installs a global tracer provider and returns its shutdown.
func SetupTracing() func(ctx context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// Server exposes the registry on /metrics. It is a lifecycle component; an
// empty address makes it a no-op.
type Server struct {
	addr    string
	handler http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewServer(addr string, metrics *Metrics) *Server {
	mux := http.NewServeMux()
	if reg := metrics.Registry(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{addr: addr, handler: mux}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.srv = &http.Server{Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}(s.srv, s.done)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}
