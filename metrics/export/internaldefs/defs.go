package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Names carry no _total suffix;
// exporters add it where their format requires.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure", Help: "Failed logins."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited", Help: "Logins rejected by the throttle."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterDuplicate, Name: "gosession_register_duplicate", Help: "Registrations rejected for a taken email."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success", Help: "Successful refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure", Help: "Rejected refresh attempts."},
	{ID: goSession.MetricRefreshVersionMismatch, Name: "gosession_refresh_version_mismatch", Help: "Refresh tokens from an ended session epoch."},
	{ID: goSession.MetricRefreshHashMismatch, Name: "gosession_refresh_hash_mismatch", Help: "Refresh tokens that were not the latest issued."},
	{ID: goSession.MetricRefreshConflict, Name: "gosession_refresh_conflict", Help: "Rotations that lost the compare-and-set."},
	{ID: goSession.MetricRefreshRateLimited, Name: "gosession_refresh_rate_limited", Help: "Refreshes rejected by the throttle."},
	{ID: goSession.MetricSessionRevoked, Name: "gosession_session_revoked", Help: "Session epoch advances."},
	{ID: goSession.MetricLogout, Name: "gosession_logout", Help: "Logouts."},
	{ID: goSession.MetricAuthenticateFailure, Name: "gosession_authenticate_failure", Help: "Rejected access tokens."},
	{ID: goSession.MetricStoreUnavailable, Name: "gosession_store_unavailable", Help: "User store calls that failed or timed out."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh latency."},
	{ID: goSession.MetricAuthenticateLatency, Name: "gosession_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "gosession_audit_dropped"

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// ApproxSum estimates the histogram sum from bucket midpoints; the engine
// records no exact sum.
func ApproxSum(raw [8]uint64) float64 {
	var sum, lower float64
	for i, n := range raw {
		upper := lower * 2
		if i < len(HistogramUpperBounds) {
			upper = HistogramUpperBounds[i]
		}
		sum += float64(n) * (lower + upper) / 2
		lower = upper
	}
	return sum
}
