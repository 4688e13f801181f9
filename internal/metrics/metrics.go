package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailDropped = "dropped"
)

type Collector struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	emails        *prometheus.CounterVec
	outboxDropped prometheus.Counter
	verifications *prometheus.CounterVec
}

// * NewCollector создает метрики и регистрирует их в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_cache_hits_total",
			Help: "Cache hits by cache key.",
		}, []string{"key"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_cache_misses_total",
			Help: "Cache misses by cache key.",
		}, []string{"key"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_emails_processed_total",
			Help: "Email deliveries processed by the worker, by result.",
		}, []string{"result"}),
		outboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_outbox_dropped_total",
			Help: "Emails rejected because the outbox buffer was full.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_verification_outcomes_total",
			Help: "Verification gate outcomes.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.cacheHits, c.cacheMisses, c.emails, c.outboxDropped, c.verifications)

	return c
}

func (c *Collector) RecordCacheHit(key string) {
	c.cacheHits.WithLabelValues(key).Inc()
}

func (c *Collector) RecordCacheMiss(key string) {
	c.cacheMisses.WithLabelValues(key).Inc()
}

func (c *Collector) RecordEmail(result string) {
	c.emails.WithLabelValues(result).Inc()
}

func (c *Collector) RecordOutboxDropped() {
	c.outboxDropped.Inc()
}

func (c *Collector) RecordVerification(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
