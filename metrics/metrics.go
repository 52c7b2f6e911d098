// Package metrics exposes claimdesk counters on a private Prometheus registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimdesk/apperr"
	"claimdesk/claim"
)

type Registry struct {
	reg               *prometheus.Registry
	Lookups           *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	CatalogLoads      *prometheus.CounterVec
	CatalogRows       prometheus.Gauge
	TransportFailures *prometheus.CounterVec
	TransportLatency  *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_lookups_total",
		Help: "Customer lookups by result.",
	}, []string{"result"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_submissions_total",
		Help: "Claim submissions by outcome.",
	}, []string{"outcome"})
	catalogLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_catalog_loads_total",
		Help: "Physical catalog reads by result.",
	}, []string{"result"})
	catalogRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claimdesk_catalog_rows",
		Help: "Rows in the most recently read catalog.",
	})
	transportFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claimdesk_transport_failures_total",
		Help: "Failed calls to external services.",
	}, []string{"target"})
	transportLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimdesk_transport_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})

	r.MustRegister(lookups, submissions, catalogLoads, catalogRows, transportFailures, transportLatency)
	return &Registry{
		reg:               r,
		Lookups:           lookups,
		Submissions:       submissions,
		CatalogLoads:      catalogLoads,
		CatalogRows:       catalogRows,
		TransportFailures: transportFailures,
		TransportLatency:  transportLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// CatalogObserver returns a callback for catalog.Loader.WithObserver.
func (r *Registry) CatalogObserver() func(rows int, err error) {
	return func(rows int, err error) {
		if err != nil {
			r.CatalogLoads.WithLabelValues("error").Inc()
		} else {
			r.CatalogLoads.WithLabelValues("ok").Inc()
		}
		r.CatalogRows.Set(float64(rows))
	}
}

// ObserveLookup counts one lookup.
func (r *Registry) ObserveLookup(res claim.Lookup, err error) {
	switch {
	case apperr.Is(err, apperr.KindValidation):
		r.Lookups.WithLabelValues("invalid").Inc()
	case err != nil:
		r.Lookups.WithLabelValues("error").Inc()
	case len(res.Rows) == 0:
		r.Lookups.WithLabelValues("no_products").Inc()
	default:
		r.Lookups.WithLabelValues("found").Inc()
	}
}

// ObserveSubmit counts one submission.
func (r *Registry) ObserveSubmit(out claim.Outcome, err error) {
	switch {
	case apperr.Is(err, apperr.KindValidation):
		r.Submissions.WithLabelValues("invalid").Inc()
	case apperr.Is(err, apperr.KindTransport):
		r.Submissions.WithLabelValues("mail_failed").Inc()
	case err != nil:
		r.Submissions.WithLabelValues("error").Inc()
	case out.Mailed && !out.Tracked:
		r.Submissions.WithLabelValues("partial").Inc()
	default:
		r.Submissions.WithLabelValues("submitted").Inc()
	}
}

// Notifier wraps n with latency and failure accounting under target "smtp".
func (r *Registry) Notifier(n claim.Notifier) claim.Notifier {
	return &notifier{next: n, reg: r}
}

// Tracker wraps t with latency and failure accounting under target "tracker".
func (r *Registry) Tracker(t claim.Tracker) claim.Tracker {
	return &tracker{next: t, reg: r}
}

func (r *Registry) observe(target string, start time.Time, err error) {
	r.TransportLatency.WithLabelValues(target).Observe(time.Since(start).Seconds())
	if err != nil {
		r.TransportFailures.WithLabelValues(target).Inc()
	}
}

type notifier struct {
	next claim.Notifier
	reg  *Registry
}

func (n *notifier) Notify(ctx context.Context, msg claim.Message, doc claim.Attachment) error {
	start := time.Now()
	err := n.next.Notify(ctx, msg, doc)
	n.reg.observe("smtp", start, err)
	return err
}

type tracker struct {
	next claim.Tracker
	reg  *Registry
}

func (t *tracker) Submit(ctx context.Context, rec claim.Record) error {
	start := time.Now()
	err := t.next.Submit(ctx, rec)
	t.reg.observe("tracker", start, err)
	return err
}
