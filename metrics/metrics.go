package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service. All record
// methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	ChannelDeletions      *prometheus.CounterVec
	ChannelRecoveries     *prometheus.CounterVec
	FanoutCancelled       prometheus.Counter
	DeletionDuration      prometheus.Histogram
	TombstonesExpired     prometheus.Counter
	CancelledSubsPurged   prometheus.Counter
	OrphanHistoryArchived prometheus.Counter
	StatisticsCacheHits   prometheus.Counter
	StatisticsCacheMisses prometheus.Counter
	RequestDuration       *prometheus.HistogramVec
	RequestsInFlight      prometheus.Gauge
}

// New builds every collector and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChannelDeletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetube_channel_deletions_total",
				Help: "Channel deletions, by reason and result.",
			},
			[]string{"reason", "result"},
		),
		ChannelRecoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetube_channel_recoveries_total",
				Help: "Channel recovery attempts, by result.",
			},
			[]string{"result"},
		),
		FanoutCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_subscription_fanout_cancelled_total",
			Help: "Subscriptions cancelled by channel deletions.",
		}),
		DeletionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tweetube_channel_deletion_duration_seconds",
			Help:    "Duration of the channel deletion transaction.",
			Buckets: prometheus.DefBuckets,
		}),
		TombstonesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_tombstones_expired_total",
			Help: "Deleted-channel records that passed their recovery deadline.",
		}),
		CancelledSubsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_cancelled_subscriptions_purged_total",
			Help: "Cancelled subscriptions removed by the retention sweep.",
		}),
		OrphanHistoryArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_orphan_watch_history_archived_total",
			Help: "Watch history records archived because their video is gone.",
		}),
		StatisticsCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_deletion_stats_cache_hits_total",
			Help: "Deletion statistics served from Redis.",
		}),
		StatisticsCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetube_deletion_stats_cache_misses_total",
			Help: "Deletion statistics recomputed from the database.",
		}),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tweetube_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route, method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tweetube_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
	}

	reg.MustRegister(
		m.ChannelDeletions,
		m.ChannelRecoveries,
		m.FanoutCancelled,
		m.DeletionDuration,
		m.TombstonesExpired,
		m.CancelledSubsPurged,
		m.OrphanHistoryArchived,
		m.StatisticsCacheHits,
		m.StatisticsCacheMisses,
		m.RequestDuration,
		m.RequestsInFlight,
	)
	return m
}

func (m *Metrics) ObserveDeletion(reason string, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChannelDeletions.WithLabelValues(reason, result).Inc()
	m.DeletionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRecovery(result string) {
	if m == nil {
		return
	}
	m.ChannelRecoveries.WithLabelValues(result).Inc()
}

func (m *Metrics) AddFanoutCancelled(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.FanoutCancelled.Add(float64(n))
}

func (m *Metrics) AddTombstonesExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TombstonesExpired.Add(float64(n))
}

func (m *Metrics) AddCancelledSubscriptionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CancelledSubsPurged.Add(float64(n))
}

func (m *Metrics) AddOrphanHistoryArchived(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanHistoryArchived.Add(float64(n))
}

func (m *Metrics) StatisticsCacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.StatisticsCacheHits.Inc()
		return
	}
	m.StatisticsCacheMisses.Inc()
}

// Middleware records request duration and in-flight count. Routes are
// labelled by their registered pattern to keep cardinality bounded.
func (m *Metrics) Middleware(metricsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		m.RequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestDuration.WithLabelValues(route, c.Request.Method, status).Observe(time.Since(start).Seconds())
		m.RequestsInFlight.Dec()
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
