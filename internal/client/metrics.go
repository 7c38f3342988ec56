package client

import (
	"errors"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/deskline/deskline/internal/apierrors"
)

const metricsNamespace = "deskline_client"

// Outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeAPIError     = "api_error"
	OutcomeNetworkError = "network_error"
)

// Metrics counts requests per route template and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the client collectors on reg. A nil reg keeps the
// collectors unregistered, which is what tests and one-shot commands want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total number of backend requests",
		}, []string{"method", "route", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Backend request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) observe(method, route string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, outcome(err)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return OutcomeAPIError
	}
	return OutcomeNetworkError
}

// RouteStats aggregates one method and route from a gathered registry.
type RouteStats struct {
	Method   string
	Route    string
	Requests map[string]float64
	Count    uint64
	Seconds  float64
}

// Average returns the mean request latency.
func (s RouteStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return time.Duration(s.Seconds / float64(s.Count) * float64(time.Second))
}

// Summarize gathers g and folds the client collectors into one entry per
// method and route, sorted by route then method.
func Summarize(g prometheus.Gatherer) ([]RouteStats, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	byKey := map[string]*RouteStats{}
	entry := func(method, route string) *RouteStats {
		key := method + " " + route
		s, ok := byKey[key]
		if !ok {
			s = &RouteStats{Method: method, Route: route, Requests: map[string]float64{}}
			byKey[key] = s
		}
		return s
	}

	for _, family := range families {
		switch family.GetName() {
		case metricsNamespace + "_requests_total":
			for _, metric := range family.GetMetric() {
				labels := map[string]string{}
				for _, pair := range metric.GetLabel() {
					labels[pair.GetName()] = pair.GetValue()
				}
				s := entry(labels["method"], labels["route"])
				s.Requests[labels["outcome"]] += metric.GetCounter().GetValue()
			}
		case metricsNamespace + "_request_duration_seconds":
			for _, metric := range family.GetMetric() {
				labels := map[string]string{}
				for _, pair := range metric.GetLabel() {
					labels[pair.GetName()] = pair.GetValue()
				}
				s := entry(labels["method"], labels["route"])
				s.Count += metric.GetHistogram().GetSampleCount()
				s.Seconds += metric.GetHistogram().GetSampleSum()
			}
		}
	}

	stats := make([]RouteStats, 0, len(byKey))
	for _, s := range byKey {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Route != stats[j].Route {
			return stats[i].Route < stats[j].Route
		}
		return stats[i].Method < stats[j].Method
	})
	return stats, nil
}
