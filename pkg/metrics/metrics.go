// Package metrics exports request outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/amdevit/restling/rest"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeTransport = "transport_error"
)

// Observer is a rest.Observer recording Prometheus metrics.
type Observer struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewObserver creates the collectors under namespace and registers them
// with reg.
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests executed, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Round trip time of requests that received a response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	for _, c := range []prometheus.Collector{o.requests, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Observe records res.
func (o *Observer) Observe(req *rest.Request, res *rest.Result) {
	method := "unknown"
	if req != nil {
		if verb, err := req.Verb(); err == nil {
			method = verb
		}
	}

	outcome := OutcomeFailure
	switch {
	case res.Err() != nil:
		outcome = OutcomeTransport
	case res.IsSuccessful():
		outcome = OutcomeSuccess
	}
	o.requests.WithLabelValues(method, outcome).Inc()

	if res.HasStatus() {
		o.duration.WithLabelValues(method).Observe(res.Elapsed().Seconds())
	}
}
