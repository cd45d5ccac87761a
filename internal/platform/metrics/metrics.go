// Package metrics holds the Prometheus collectors recorded by the HTTP,
// archive and spool layers. The parsing engine itself records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	MessagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urhl7_messages_parsed_total",
		Help: "Messages handed to the parser, by result",
	}, []string{"result"})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "urhl7_parse_duration_seconds",
		Help:    "Time spent parsing a single message",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
	})

	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urhl7_queries_total",
		Help: "Path queries served, by kind",
	}, []string{"kind"})

	DelimiterRewrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urhl7_delimiter_rewrites_total",
		Help: "Messages moved to a new delimiter set",
	})

	RuleEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urhl7_rule_evaluations_total",
		Help: "Rule evaluations, by result (pass or fail)",
	}, []string{"result"})

	SpoolFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urhl7_spool_files_total",
		Help: "Spool files processed, by result",
	}, []string{"result"})

	ArchivedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urhl7_archived_messages_total",
		Help: "Messages written to the archive",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urhl7_http_requests_total",
		Help: "HTTP requests, by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urhl7_http_request_duration_seconds",
		Help:    "HTTP request latency, by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveParse records the outcome of one parse started at start.
func ObserveParse(start time.Time, err error) {
	ParseDuration.Observe(time.Since(start).Seconds())
	MessagesParsed.WithLabelValues(result(err)).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, start time.Time) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// ObserveRule records a rule outcome.
func ObserveRule(passed bool) {
	if passed {
		RuleEvaluations.WithLabelValues("pass").Inc()
		return
	}
	RuleEvaluations.WithLabelValues("fail").Inc()
}

// ObserveSpoolFile records one processed spool file.
func ObserveSpoolFile(err error) {
	SpoolFiles.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoHandler is Handler wrapped for echo routes.
func EchoHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
