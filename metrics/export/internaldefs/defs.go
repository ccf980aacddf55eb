package internaldefs

import (
	loginGuard "github.com/MrEthical07/loginGuard"
)

// Label is one name/value pair of a series.
type Label struct {
	Name  string
	Value string
}

// Series binds an engine counter to the labels it is exported under.
type Series struct {
	ID     loginGuard.MetricID
	Labels []Label
}

// CounterFamily groups engine counters that answer the same question under
// one metric name. Families with a single unlabelled series are plain
// counters.
type CounterFamily struct {
	Name   string
	Help   string
	Series []Series
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   loginGuard.MetricID
	Name string
	Help string
}

func one(id loginGuard.MetricID) []Series {
	return []Series{{ID: id}}
}

func gate(id loginGuard.MetricID, gate, event string) Series {
	return Series{ID: id, Labels: []Label{{"gate", gate}, {"event", event}}}
}

func event(id loginGuard.MetricID, value string) Series {
	return Series{ID: id, Labels: []Label{{"event", value}}}
}

// CounterFamilies lists every exported counter family in render order.
//
// The throttle family carries the whole login gate pipeline: failures
// recorded by the attempt counter, the CAPTCHA band, and the ban that
// replaces the counter.
var CounterFamilies = []CounterFamily{
	{
		Name:   "loginguard_login_success_total",
		Help:   "Logins that issued a session or a verification token.",
		Series: one(loginGuard.MetricLoginSuccess),
	},
	{
		Name: "loginguard_throttle_events_total",
		Help: "Login throttle activity by gate.",
		Series: []Series{
			gate(loginGuard.MetricLoginFailure, "attempt", "recorded"),
			gate(loginGuard.MetricCaptchaRequired, "captcha", "required"),
			gate(loginGuard.MetricCaptchaFailed, "captcha", "failed"),
			gate(loginGuard.MetricBanCreated, "ban", "created"),
			gate(loginGuard.MetricLoginBanned, "ban", "rejected"),
		},
	},
	{
		Name: "loginguard_verification_events_total",
		Help: "Verify token lifecycle.",
		Series: []Series{
			event(loginGuard.MetricVerificationIssued, "issued"),
			event(loginGuard.MetricVerificationRedeemed, "redeemed"),
			event(loginGuard.MetricVerificationFailed, "failed"),
		},
	},
	{
		Name: "loginguard_session_events_total",
		Help: "Session lifecycle.",
		Series: []Series{
			event(loginGuard.MetricSessionCreated, "created"),
			event(loginGuard.MetricSessionNotFound, "not_found"),
			event(loginGuard.MetricSessionRevoked, "revoked"),
		},
	},
	{
		Name:   "loginguard_csrf_rejected_total",
		Help:   "Mutating requests rejected by the CSRF check.",
		Series: one(loginGuard.MetricCSRFRejected),
	},
	{
		Name: "loginguard_fingerprint_mismatch_total",
		Help: "Verified logins whose fingerprint differs from the stored one.",
		Series: []Series{
			{ID: loginGuard.MetricIPMismatch, Labels: []Label{{"field", "ip"}}},
			{ID: loginGuard.MetricUserAgentMismatch, Labels: []Label{{"field", "user_agent"}}},
		},
	},
	{
		Name:   "loginguard_security_event_dropped_total",
		Help:   "Security events the credential store failed to append.",
		Series: one(loginGuard.MetricSecurityEventDropped),
	},
	{
		Name:   "loginguard_password_upgraded_total",
		Help:   "Password hashes rewritten with current parameters.",
		Series: one(loginGuard.MetricPasswordUpgraded),
	},
	{
		Name: "loginguard_account_events_total",
		Help: "Account creation outcomes.",
		Series: []Series{
			event(loginGuard.MetricAccountCreated, "created"),
			event(loginGuard.MetricAccountDuplicate, "duplicate"),
		},
	},
}

// AuditDroppedName is the family of audit drops, labelled by event_type.
const (
	AuditDroppedName = "loginguard_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped on a full dispatcher buffer, by event type."
)

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: loginGuard.MetricValidateLatency, Name: "loginguard_validate_session_latency_seconds", Help: "Session validation latency."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
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

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus "le" counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
