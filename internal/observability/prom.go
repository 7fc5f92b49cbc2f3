package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "captionhub"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	CaptionDuration *prometheus.HistogramVec
	CaptionResults  *prometheus.CounterVec

	RateLimited *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: counterVec("", "http_requests_total",
			"Total HTTP requests processed.", "method", "route", "status"),
		RequestsDuration: histogramVec("", "http_request_duration_seconds",
			"HTTP request latency; caption uploads include the provider round trip.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			"method", "route", "status"),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}, []string{"method", "route"}),

		DbQueryDuration: histogramVec("db", "query_duration_seconds",
			"DB operation latency by logical op. status=ok|miss|error.",
			[]float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			"op", "status"),
		DbErrorsTotal: counterVec("db", "errors_total",
			"DB errors by logical op and class.", "op", "class"),

		CaptionDuration: histogramVec("captioner", "duration_seconds",
			"Caption generation latency by result.",
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			"result"),
		CaptionResults: counterVec("captioner", "results_total",
			"Caption generation outcomes: ok, error, timeout, canceled, circuit_open.", "result"),

		RateLimited: counterVec("ratelimit", "rejected_total",
			"Requests rejected with 429 by limiter scope.", "scope"),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CaptionDuration, p.CaptionResults,
		p.RateLimited,
	)

	return p
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// unobserved routes are probes and the scrape endpoint itself.
var unobserved = map[string]bool{
	"/metrics": true,
	"/healthz": true,
	"/readyz":  true,
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if unobserved[route] {
			ctx.Next()
			return
		}
		if route == "" {
			// keeps label cardinality bounded against path scanning
			route = "unmatched"
		}

		start := time.Now()
		method := ctx.Request.Method

		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()

		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveCaption records one captioning call. Nil receivers are no-ops.
func (p *Prom) ObserveCaption(result string, d time.Duration) {
	if p == nil {
		return
	}
	p.CaptionResults.WithLabelValues(result).Inc()
	p.CaptionDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveRateLimited counts one rejected request. Nil receivers are no-ops.
func (p *Prom) ObserveRateLimited(scope string) {
	if p == nil {
		return
	}
	p.RateLimited.WithLabelValues(scope).Inc()
}
