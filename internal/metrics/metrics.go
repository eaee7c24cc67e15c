// Package metrics exposes Prometheus collectors for validation rounds.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	namespace = "comchat"
	subsystem = "validator"

	OutcomeAnswered = "answered"
	OutcomeTimeout  = "timeout"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"

	RoundVoted   = "voted"
	RoundSkipped = "skipped"
	RoundFailed  = "failed"
)

// Manager owns a private registry so several validators can live in one
// process (and in tests) without duplicate registration panics.
type Manager struct {
	registry *prometheus.Registry

	rounds           *prometheus.CounterVec
	roundDuration    prometheus.Histogram
	peerCalls        *prometheus.CounterVec
	peerCallLatency  prometheus.Histogram
	scores           prometheus.Histogram
	weightsSubmitted prometheus.Gauge
	peersResolved    prometheus.Gauge
	embeddingCache   prometheus.GaugeFunc
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Manager{
		registry: registry,
		rounds: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rounds_total",
			Help:      "Validation rounds by result",
		}, []string{"result"}),
		roundDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "round_duration_seconds",
			Help:      "Wall time of a validation round",
			Buckets:   []float64{1, 5, 15, 30, 60, 90, 120, 300},
		}),
		peerCalls: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_calls_total",
			Help:      "Miner calls by outcome",
		}, []string{"outcome"}),
		peerCallLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_call_latency_seconds",
			Help:      "Latency of miner generate calls",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		scores: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "answer_score",
			Help:      "Similarity score of valid miner answers",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		weightsSubmitted: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "weights_submitted",
			Help:      "Number of uids in the last submitted vote",
		}),
		peersResolved: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peers_resolved",
			Help:      "Miners with a routable address in the last round",
		}),
	}
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) ObserveRound(result string, d time.Duration) {
	m.rounds.WithLabelValues(result).Inc()
	m.roundDuration.Observe(d.Seconds())
}

func (m *Manager) ObservePeerCall(outcome string, latency time.Duration) {
	m.peerCalls.WithLabelValues(outcome).Inc()
	m.peerCallLatency.Observe(latency.Seconds())
}

func (m *Manager) ObserveScore(score float64) {
	m.scores.Observe(score)
}

func (m *Manager) SetWeightsSubmitted(n int) {
	m.weightsSubmitted.Set(float64(n))
}

func (m *Manager) SetPeersResolved(n int) {
	m.peersResolved.Set(float64(n))
}

// TrackCacheSize reports the embedding cache occupancy on every scrape.
func (m *Manager) TrackCacheSize(size func() int) {
	if m.embeddingCache != nil {
		return
	}
	m.embeddingCache = promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "embedding_cache_entries",
		Help:      "Entries held by the embedding cache",
	}, func() float64 { return float64(size()) })
}

// Handler returns the /metrics route for this manager's registry.
func (m *Manager) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, addr string) error {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", m.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Serving metrics on %s/metrics", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
