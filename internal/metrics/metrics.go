// Package metrics exposes Prometheus collectors for the populator.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	datasetsCrawledTotal prometheus.Counter
	catalogsCrawledTotal prometheus.Counter
	nodeFailuresTotal    *prometheus.CounterVec
	entitiesTotal        *prometheus.CounterVec
	crawlDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		datasetsCrawledTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "populator_datasets_crawled_total",
				Help: "Total number of dataset descriptors resolved.",
			},
		)

		catalogsCrawledTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "populator_catalogs_crawled_total",
				Help: "Total number of catalog documents walked.",
			},
		)

		nodeFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "populator_node_failures_total",
				Help: "Total number of non-fatal node failures, labeled by pipeline stage.",
			},
			[]string{"stage"},
		)

		entitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "populator_entities_total",
				Help: "Total number of records delivered, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "populator_crawl_duration_seconds",
				Help:    "Histogram of full-run durations.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		)
	})
}

// ObserveDataset records one resolved dataset descriptor.
func ObserveDataset() {
	if datasetsCrawledTotal != nil {
		datasetsCrawledTotal.Inc()
	}
}

// ObserveCatalog records one walked catalog document.
func ObserveCatalog() {
	if catalogsCrawledTotal != nil {
		catalogsCrawledTotal.Inc()
	}
}

// ObserveFailure records one non-fatal node failure at a pipeline stage.
func ObserveFailure(stage string) {
	if nodeFailuresTotal != nil {
		nodeFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// ObserveEntity records one delivered record by outcome.
func ObserveEntity(outcome string) {
	if entitiesTotal != nil {
		entitiesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRunDuration records the wall time of a completed run.
func ObserveRunDuration(d time.Duration) {
	if crawlDurationSeconds != nil {
		crawlDurationSeconds.Observe(d.Seconds())
	}
}

// Serve exposes /metrics on the given address until the context ends.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
