package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricIssueSuccess, Name: "gosession_issue_success_total", Help: "Sessions created."},
	{ID: goSession.MetricIssueFailure, Name: "gosession_issue_failure_total", Help: "Issue calls that returned an error."},
	{ID: goSession.MetricIssueRateLimited, Name: "gosession_issue_rate_limited_total", Help: "Issue calls refused by the per-user throttle."},
	{ID: goSession.MetricVerifyAuthenticated, Name: "gosession_verify_authenticated_total", Help: "Verifications satisfied by the access token."},
	{ID: goSession.MetricVerifyRotated, Name: "gosession_verify_rotated_total", Help: "Verifications satisfied by the refresh token."},
	{ID: goSession.MetricVerifyUnauthorized, Name: "gosession_verify_unauthorized_total", Help: "Denied verifications."},
	{ID: goSession.MetricRotationConflict, Name: "gosession_rotation_conflict_total", Help: "Refresh tokens whose session was already consumed or revoked."},
	{ID: goSession.MetricStoreUnavailable, Name: "gosession_store_unavailable_total", Help: "Revocation store failures."},
	{ID: goSession.MetricRevoke, Name: "gosession_revoke_total", Help: "Sessions revoked."},
	{ID: goSession.MetricRevokeFailure, Name: "gosession_revoke_failure_total", Help: "Revocations whose delete failed."},
	{ID: goSession.MetricPreviousSessionCleanupFailure, Name: "gosession_previous_session_cleanup_failure_total", Help: "Failed deletes of a replaced session."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricVerifyLatency, Name: "gosession_verify_latency_seconds", Help: "Verify latency histogram."},
}

// AuditDroppedName is the counter exported for Engine.AuditDropped.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped by the dispatcher."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is the +Inf overflow.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBounds are the "le" label values, +Inf included.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling a short
// or missing histogram.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
