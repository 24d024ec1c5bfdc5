// Package metrics provides Prometheus metric collection for the practice
// service. Counters are registered against a caller-supplied registry so
// tests can use an isolated one.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the interface the service layer records metrics through.
type Recorder interface {
	RecordSessionStarted(cardCount int)
	RecordSessionCompleted()
	RecordResponse(rating string)
	RecordCustomCardCreated()
	RecordRequestDuration(route string, duration time.Duration)
}

// Collector is the Prometheus-backed Recorder implementation.
type Collector struct {
	sessionsStarted    prometheus.Counter
	sessionsCompleted  prometheus.Counter
	sessionCards       prometheus.Counter
	responses          *prometheus.CounterVec
	customCardsCreated prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepdeck_sessions_started_total",
			Help: "Total number of practice sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepdeck_sessions_completed_total",
			Help: "Total number of practice sessions completed.",
		}),
		sessionCards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepdeck_session_cards_total",
			Help: "Total number of cards dealt into practice sessions.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepdeck_responses_total",
			Help: "Total number of card responses recorded, by rating.",
		}, []string{"rating"}),
		customCardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepdeck_custom_cards_created_total",
			Help: "Total number of user-authored flashcards created.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prepdeck_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionsCompleted,
		c.sessionCards,
		c.responses,
		c.customCardsCreated,
		c.requestDuration,
	)

	return c
}

var _ Recorder = (*Collector)(nil)

// RecordSessionStarted counts a started session and the cards dealt into it.
func (c *Collector) RecordSessionStarted(cardCount int) {
	c.sessionsStarted.Inc()
	c.sessionCards.Add(float64(cardCount))
}

// RecordSessionCompleted counts a completed session.
func (c *Collector) RecordSessionCompleted() {
	c.sessionsCompleted.Inc()
}

// RecordResponse counts one recorded card response by rating.
func (c *Collector) RecordResponse(rating string) {
	c.responses.WithLabelValues(rating).Inc()
}

// RecordCustomCardCreated counts one created custom card.
func (c *Collector) RecordCustomCardCreated() {
	c.customCardsCreated.Inc()
}

// RecordRequestDuration observes request latency for the given route.
func (c *Collector) RecordRequestDuration(route string, duration time.Duration) {
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Noop is a Recorder that discards everything. Useful where metrics are
// optional, such as tests.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) RecordSessionStarted(int)                    {}
func (Noop) RecordSessionCompleted()                     {}
func (Noop) RecordResponse(string)                       {}
func (Noop) RecordCustomCardCreated()                    {}
func (Noop) RecordRequestDuration(string, time.Duration) {}
