package internaldefs

import (
	"github.com/MrEthical07/accountauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   accountauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   accountauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: accountauth.MetricAuthSuccess, Name: "accountauth_authenticate_success_total", Help: "Requests authenticated successfully."},
	{ID: accountauth.MetricAuthRejected, Name: "accountauth_authenticate_rejected_total", Help: "Requests rejected by Authenticate."},
	{ID: accountauth.MetricAuthRevoked, Name: "accountauth_authenticate_revoked_total", Help: "Requests carrying a blacklisted token."},
	{ID: accountauth.MetricAuthBackendUnavailable, Name: "accountauth_authenticate_backend_unavailable_total", Help: "Requests rejected because the blacklist or account store failed."},
	{ID: accountauth.MetricTokenIssued, Name: "accountauth_token_pair_issued_total", Help: "Token pairs issued."},
	{ID: accountauth.MetricTokenRevoked, Name: "accountauth_token_revoked_total", Help: "Token ids added to the blacklist."},
	{ID: accountauth.MetricLoginSuccess, Name: "accountauth_login_success_total", Help: "Successful logins."},
	{ID: accountauth.MetricLoginFailure, Name: "accountauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: accountauth.MetricLoginRateLimited, Name: "accountauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: accountauth.MetricSignupSuccess, Name: "accountauth_signup_success_total", Help: "Accounts created."},
	{ID: accountauth.MetricSignupDuplicate, Name: "accountauth_signup_duplicate_total", Help: "Signups rejected for an existing email."},
	{ID: accountauth.MetricRefreshSuccess, Name: "accountauth_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: accountauth.MetricRefreshFailure, Name: "accountauth_refresh_failure_total", Help: "Rejected refresh tokens."},
	{ID: accountauth.MetricRefreshRateLimited, Name: "accountauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: accountauth.MetricLogout, Name: "accountauth_logout_total", Help: "Logouts."},
	{ID: accountauth.MetricCodeSent, Name: "accountauth_verification_code_sent_total", Help: "Verification codes stored and mailed."},
	{ID: accountauth.MetricCodeConsumed, Name: "accountauth_verification_code_consumed_total", Help: "Verification codes accepted."},
	{ID: accountauth.MetricCodeRejected, Name: "accountauth_verification_code_rejected_total", Help: "Verification code candidates rejected."},
	{ID: accountauth.MetricVerificationFailover, Name: "accountauth_verification_failover_total", Help: "Verification store calls routed to the secondary backend."},
	{ID: accountauth.MetricVerificationStorageUnavailable, Name: "accountauth_verification_storage_unavailable_total", Help: "Verification store calls where both backends failed."},
	{ID: accountauth.MetricRateLimitHit, Name: "accountauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: accountauth.MetricPasswordResetRequest, Name: "accountauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: accountauth.MetricPasswordResetConfirmSuccess, Name: "accountauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: accountauth.MetricPasswordResetConfirmFailure, Name: "accountauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
}

var HistogramDefs = []HistogramDef{
	{ID: accountauth.MetricAuthenticateLatency, Name: "accountauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets, in
// seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket where a label value is not allowed.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is rendered alongside the engine counters.
const AuditDroppedName = "accountauth_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
