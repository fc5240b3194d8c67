// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads an accountauth.Engine and exposes an
// [http.Handler] for the /metrics route. Related counters are grouped into
// labelled families, for example
//
//	accountauth_login_total{result="failure"}
//	accountauth_verification_store_degraded_total{kind="failover"}
//
// The single histogram is accountauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
