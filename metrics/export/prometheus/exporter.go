package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/accountauth"
	"github.com/MrEthical07/accountauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() accountauth.MetricsSnapshot
	AuditDropped() uint64
}

// sample is one labelled series inside a family.
type sample struct {
	label string
	value string
	id    accountauth.MetricID
}

// family groups engine counters that share a metric name and differ by one
// label. A family without samples renders as a single unlabelled counter.
type family struct {
	name    string
	help    string
	id      accountauth.MetricID
	samples []sample
}

var families = []family{
	{name: "accountauth_authenticate_total", help: "Authenticate outcomes.", samples: []sample{
		{"result", "success", accountauth.MetricAuthSuccess},
		{"result", "rejected", accountauth.MetricAuthRejected},
		{"result", "revoked", accountauth.MetricAuthRevoked},
		{"result", "backend_unavailable", accountauth.MetricAuthBackendUnavailable},
	}},
	{name: "accountauth_login_total", help: "Login outcomes.", samples: []sample{
		{"result", "success", accountauth.MetricLoginSuccess},
		{"result", "failure", accountauth.MetricLoginFailure},
		{"result", "rate_limited", accountauth.MetricLoginRateLimited},
	}},
	{name: "accountauth_signup_total", help: "Signup outcomes.", samples: []sample{
		{"result", "success", accountauth.MetricSignupSuccess},
		{"result", "duplicate", accountauth.MetricSignupDuplicate},
	}},
	{name: "accountauth_refresh_total", help: "Refresh token rotation outcomes.", samples: []sample{
		{"result", "success", accountauth.MetricRefreshSuccess},
		{"result", "failure", accountauth.MetricRefreshFailure},
		{"result", "rate_limited", accountauth.MetricRefreshRateLimited},
	}},
	{name: "accountauth_verification_code_total", help: "Verification code lifecycle events.", samples: []sample{
		{"event", "sent", accountauth.MetricCodeSent},
		{"event", "consumed", accountauth.MetricCodeConsumed},
		{"event", "rejected", accountauth.MetricCodeRejected},
	}},
	{name: "accountauth_verification_store_degraded_total", help: "Verification store calls that could not be served by the primary backend.", samples: []sample{
		{"kind", "failover", accountauth.MetricVerificationFailover},
		{"kind", "storage_unavailable", accountauth.MetricVerificationStorageUnavailable},
	}},
	{name: "accountauth_password_reset_total", help: "Password reset steps.", samples: []sample{
		{"stage", "request", accountauth.MetricPasswordResetRequest},
		{"stage", "confirm_success", accountauth.MetricPasswordResetConfirmSuccess},
		{"stage", "confirm_failure", accountauth.MetricPasswordResetConfirmFailure},
	}},
	{name: "accountauth_token_pair_issued_total", help: "Token pairs issued.", id: accountauth.MetricTokenIssued},
	{name: "accountauth_token_revoked_total", help: "Token ids added to the blacklist.", id: accountauth.MetricTokenRevoked},
	{name: "accountauth_logout_total", help: "Logouts.", id: accountauth.MetricLogout},
	{name: "accountauth_rate_limit_hit_total", help: "Rate-limit checks that denied requests.", id: accountauth.MetricRateLimitHit},
}

// PrometheusExporter serves engine metrics in Prometheus text exposition
// format.
type PrometheusExporter struct {
	source metricsSource
}

func NewPrometheusExporter(engine *accountauth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any type exposing a snapshot and
// the audit drop count.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render with the text exposition content type.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the current metrics, or "" when metrics are disabled and no
// audit event was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range families {
		header(&b, f.name, f.help, "counter")
		if len(f.samples) == 0 {
			fmt.Fprintf(&b, "%s %d\n", f.name, snap.Counters[f.id])
			continue
		}
		for _, s := range f.samples {
			fmt.Fprintf(&b, "%s{%s=%q} %d\n", f.name, s.label, s.value, snap.Counters[s.id])
		}
	}

	header(&b, internaldefs.AuditDroppedName, "Audit events dropped under dispatcher backpressure.", "counter")
	fmt.Fprintf(&b, "%s %d\n", internaldefs.AuditDroppedName, dropped)

	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		header(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, buckets[i])
		}
		// The engine keeps bucket counts only, so the sum is not tracked.
		fmt.Fprintf(&b, "%s_sum 0\n%s_count %d\n", def.Name, def.Name, buckets[len(buckets)-1])
	}
	return b.String()
}

func header(b *strings.Builder, name, help, kind string) {
	help = strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
