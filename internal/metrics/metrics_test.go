package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue returns the value of the counter with the given name and
// label value, or -1 when it is missing.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func TestCollector(t *testing.T) {
	tests := []struct {
		name   string
		record func(c *Collector)
		metric string
		label  string
		want   float64
	}{
		{
			name: "sync failures by partition",
			record: func(c *Collector) {
				c.RecordSyncFailure("budgets")
				c.RecordSyncFailure("budgets")
				c.RecordSyncFailure("users")
			},
			metric: "finduo_sync_failures_total",
			label:  "budgets",
			want:   2,
		},
		{
			name:   "rows skipped",
			record: func(c *Collector) { c.RecordRowSkipped("goals") },
			metric: "finduo_rows_skipped_total",
			label:  "goals",
			want:   1,
		},
		{
			name: "events by kind",
			record: func(c *Collector) {
				c.RecordEvent("text")
				c.RecordEvent("choice")
				c.RecordEvent("text")
			},
			metric: "finduo_events_total",
			label:  "text",
			want:   2,
		},
		{
			name:   "validation errors",
			record: func(c *Collector) { c.RecordValidationError("not_positive") },
			metric: "finduo_validation_errors_total",
			label:  "not_positive",
			want:   1,
		},
		{
			name:   "commits",
			record: func(c *Collector) { c.RecordCommit("expense") },
			metric: "finduo_commits_total",
			label:  "expense",
			want:   1,
		},
		{
			name: "commit failures",
			record: func(c *Collector) {
				c.RecordCommitFailure()
				c.RecordCommitFailure()
			},
			metric: "finduo_commit_failures_total",
			want:   2,
		},
		{
			name:   "reminders",
			record: func(c *Collector) { c.RecordReminder("today") },
			metric: "finduo_reminders_total",
			label:  "today",
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			c := NewCollector(reg)
			tt.record(c)

			if got := counterValue(t, reg, tt.metric, tt.label); got != tt.want {
				t.Errorf("%s{%s} = %v, want %v", tt.metric, tt.label, got, tt.want)
			}
		})
	}
}

func TestRecordStoreLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreLatency("list", 100*time.Millisecond)
	c.RecordStoreLatency("list", 2*time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "finduo_store_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("finduo_store_latency_seconds metric not found")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCommit("income")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "finduo_commits_total") {
		t.Error("response body does not contain finduo_commits_total")
	}
}
