// Package metrics exposes crawl counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/carledger/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "carledger"

// Metrics holds the crawl metrics. It implements crawler.Observer.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal       prometheus.Counter
	RecordsTotal     *prometheus.CounterVec
	SkipsTotal       *prometheus.CounterVec
	FlushesTotal     prometheus.Counter
	FlushedRecords   prometheus.Counter
	FlushDuration    prometheus.Histogram
	LastPage         prometheus.Gauge
	CatalogWrapTotal prometheus.Counter
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "listing_pages_total",
			Help:      "Listing pages fully processed.",
		}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_accepted_total",
			Help:      "Records accepted into a batch, by category.",
		}, []string{"category"}),
		SkipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_skipped_total",
			Help:      "Listing items that produced no record, by reason.",
		}, []string{"reason"}),
		FlushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ledger_flushes_total",
			Help:      "Ledger flushes performed.",
		}),
		FlushedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ledger_records_written_total",
			Help:      "Records applied to the ledger.",
		}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ledger_flush_duration_seconds",
			Help:      "Duration of ledger flushes.",
			Buckets:   prometheus.DefBuckets,
		}),
		LastPage: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "checkpoint_page",
			Help:      "Last completed listing page as stored in the checkpoint.",
		}),
		CatalogWrapTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "catalog_wraps_total",
			Help:      "Times the end of the catalog was reached.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PageCompleted records a completed listing page.
func (m *Metrics) PageCompleted(page int) {
	m.PagesTotal.Inc()
	m.LastPage.Set(float64(page))
}

// RecordAccepted records an accepted record.
func (m *Metrics) RecordAccepted(rec model.ScrapedRecord) {
	m.RecordsTotal.WithLabelValues(string(rec.Category)).Inc()
}

// ItemSkipped records a skipped item.
func (m *Metrics) ItemSkipped(s model.Skip) {
	m.SkipsTotal.WithLabelValues(string(s.Reason)).Inc()
}

// Flushed records a ledger flush.
func (m *Metrics) Flushed(written int, d time.Duration) {
	m.FlushesTotal.Inc()
	m.FlushedRecords.Add(float64(written))
	m.FlushDuration.Observe(d.Seconds())
}

// CatalogWrapped records reaching the last catalog page.
func (m *Metrics) CatalogWrapped() {
	m.CatalogWrapTotal.Inc()
	m.LastPage.Set(0)
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
