package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes application counters for Prometheus scrapes.
type Collector struct {
	swipes          *prometheus.CounterVec
	matchesCreated  prometheus.Counter
	matchesArchived prometheus.Counter
	messages        *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchflow_swipes_total",
			Help: "Recorded swipe decisions by action.",
		}, []string{"action"}),
		matchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchflow_matches_created_total",
			Help: "Matches created by the reciprocal like detector.",
		}),
		matchesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchflow_matches_archived_total",
			Help: "Matches archived by unmatch.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchflow_messages_appended_total",
			Help: "Messages appended to conversations, split by replay.",
		}, []string{"replayed"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchflow_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.swipes,
		c.matchesCreated,
		c.matchesArchived,
		c.messages,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordSwipe(action string) {
	c.swipes.WithLabelValues(action).Inc()
}

func (c *Collector) RecordMatchCreated() {
	c.matchesCreated.Inc()
}

func (c *Collector) RecordMatchArchived() {
	c.matchesArchived.Inc()
}

func (c *Collector) RecordMessageAppended(replayed bool) {
	c.messages.WithLabelValues(strconv.FormatBool(replayed)).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
