package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/accountauth"
	"github.com/MrEthical07/accountauth/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot accountauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() accountauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountauth.NewMetrics(accountauth.MetricsConfig{}).Snapshot(),
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountauth.MetricsSnapshot{
			Counters: map[accountauth.MetricID]uint64{
				accountauth.MetricLoginSuccess:         7,
				accountauth.MetricVerificationFailover: 2,
			},
			Histograms: map[accountauth.MetricID][]uint64{
				accountauth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		`accountauth_login_total{result="success"} 7`,
		`accountauth_verification_store_degraded_total{kind="failover"} 2`,
		`accountauth_verification_store_degraded_total{kind="storage_unavailable"} 0`,
		`accountauth_signup_total{result="success"} 0`,
		`accountauth_authenticate_latency_seconds_bucket{le="0.005"} 1`,
		`accountauth_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"accountauth_authenticate_latency_seconds_count 36",
		"accountauth_audit_dropped_total 2",
		"accountauth_logout_total 0",
		"# TYPE accountauth_logout_total counter",
		"# TYPE accountauth_authenticate_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	m := accountauth.NewMetrics(accountauth.MetricsConfig{Enabled: true})
	m.Inc(accountauth.MetricCodeSent)
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: m.Snapshot()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `accountauth_verification_code_total{event="sent"} 1`) {
		t.Fatalf("counter missing from body:\n%s", rec.Body.String())
	}
}

func TestNilExporterRendersNothing(t *testing.T) {
	var exp *PrometheusExporter
	if exp.Render() != "" {
		t.Fatal("nil exporter rendered output")
	}
}

func TestFamiliesCoverEveryCounter(t *testing.T) {
	seen := make(map[accountauth.MetricID]int)
	for _, f := range families {
		if len(f.samples) == 0 {
			seen[f.id]++
		}
		for _, s := range f.samples {
			seen[s.id]++
		}
	}
	for _, def := range internaldefs.CounterDefs {
		if seen[def.ID] != 1 {
			t.Fatalf("%s rendered %d times, want 1", def.Name, seen[def.ID])
		}
	}
	if len(seen) != len(internaldefs.CounterDefs) {
		t.Fatalf("families render %d counters, defs list %d", len(seen), len(internaldefs.CounterDefs))
	}
}
