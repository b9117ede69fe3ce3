package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/nao1215/carledger/internal/model"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

// TestMetricsObserver tests counter updates.
func TestMetricsObserver(t *testing.T) {
	t.Parallel()

	m := New()
	m.PageCompleted(4)
	m.PageCompleted(5)
	m.RecordAccepted(model.ScrapedRecord{Category: model.CategoryPremium})
	m.ItemSkipped(model.Skip{Reason: model.SkipBelowFloor})
	m.ItemSkipped(model.Skip{Reason: model.SkipBelowFloor})
	m.Flushed(3, 10*time.Millisecond)

	f := gather(t, m)

	if got := f["carledger_listing_pages_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("pages = %v, want 2", got)
	}
	if got := f["carledger_checkpoint_page"].GetMetric()[0].GetGauge().GetValue(); got != 5 {
		t.Errorf("checkpoint gauge = %v, want 5", got)
	}
	if got := f["carledger_items_skipped_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("skips = %v, want 2", got)
	}
	if got := f["carledger_ledger_records_written_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("written = %v, want 3", got)
	}

	m.CatalogWrapped()
	f = gather(t, m)
	if got := f["carledger_checkpoint_page"].GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("checkpoint gauge after wrap = %v, want 0", got)
	}
}

// TestMetricsHandler tests the exposition endpoint.
func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordAccepted(model.ScrapedRecord{Category: model.CategoryMainLine})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `carledger_records_accepted_total{category="MainLine"} 1`) {
		t.Errorf("unexpected exposition:\n%s", body)
	}
}
