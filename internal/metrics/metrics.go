// Package metrics exposes crawler counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobmate/internship-crawler/internal/model"
)

const namespace = "internship_crawler"

// Metrics holds the crawler's collectors on a private registry so tests and
// multiple instances never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	CompaniesProcessed prometheus.Counter
	CompaniesSkipped   prometheus.Counter
	PostingsFound      prometheus.Counter
	PostingsAdded      prometheus.Counter
	PostingsSkipped    prometheus.Counter
	PostingsRejected   prometheus.Counter
	Errors             *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	m := &Metrics{
		registry:           prometheus.NewRegistry(),
		CompaniesProcessed: counter("companies_processed_total", "Companies whose pipeline completed."),
		CompaniesSkipped:   counter("companies_skipped_total", "Companies skipped because of an error."),
		PostingsFound:      counter("postings_found_total", "Candidate postings produced by the extractor."),
		PostingsAdded:      counter("postings_added_total", "Internships inserted into the job store."),
		PostingsSkipped:    counter("postings_skipped_total", "Internships skipped as duplicates or on storage errors."),
		PostingsRejected:   counter("postings_rejected_total", "Candidates rejected by the internship rule."),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Per-company errors by pipeline stage.",
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete runs.",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 2400},
		}),
	}
	m.registry.MustRegister(
		m.CompaniesProcessed, m.CompaniesSkipped,
		m.PostingsFound, m.PostingsAdded, m.PostingsSkipped, m.PostingsRejected,
		m.Errors, m.RunDuration,
	)
	return m
}

// ObserveRun records a finished run. Safe on a nil receiver.
func (m *Metrics) ObserveRun(stats model.RunStatistics, skippedCompanies int, took time.Duration) {
	if m == nil {
		return
	}
	m.CompaniesProcessed.Add(float64(stats.CompaniesProcessed))
	m.CompaniesSkipped.Add(float64(skippedCompanies))
	m.PostingsFound.Add(float64(stats.JobsFound))
	m.PostingsAdded.Add(float64(stats.JobsAdded))
	m.PostingsSkipped.Add(float64(stats.JobsSkipped))
	m.PostingsRejected.Add(float64(stats.JobsRejected))
	for _, e := range stats.Errors {
		m.Errors.WithLabelValues(string(e.Stage)).Inc()
	}
	m.RunDuration.Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
