package authcore

import "sync/atomic"

// MetricID indexes one counter in the in-process metrics table.
type MetricID uint8

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins (unknown identity and wrong
	// password are not distinguished, matching the wire behavior).
	MetricLoginFailure
	// MetricRefreshSuccess counts successful access-token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts, including
	// store mismatches on still-unexpired tokens.
	MetricRefreshFailure
	// MetricRevoke counts explicit session revocations.
	MetricRevoke
	// MetricSessionOverwrite counts logins that displaced a live session.
	MetricSessionOverwrite
	// MetricRateLimitHit counts admission-control rejections.
	MetricRateLimitHit
	// MetricStoreFailure counts fatal shared-store failures.
	MetricStoreFailure
	// MetricActionTokenIssued counts minted action tokens, all contexts.
	MetricActionTokenIssued
	// MetricActionTokenRejected counts action tokens that failed to verify.
	MetricActionTokenRejected
	// MetricAccountConfirmed counts completed confirmation flows.
	MetricAccountConfirmed
	// MetricPasswordReset counts completed password resets.
	MetricPasswordReset
	// MetricMailFailure counts mail deliveries that returned an error.
	MetricMailFailure

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:        "authcore_login_success_total",
	MetricLoginFailure:        "authcore_login_failure_total",
	MetricRefreshSuccess:      "authcore_refresh_success_total",
	MetricRefreshFailure:      "authcore_refresh_failure_total",
	MetricRevoke:              "authcore_revoke_total",
	MetricSessionOverwrite:    "authcore_session_overwrite_total",
	MetricRateLimitHit:        "authcore_rate_limit_hit_total",
	MetricStoreFailure:        "authcore_store_failure_total",
	MetricActionTokenIssued:   "authcore_action_token_issued_total",
	MetricActionTokenRejected: "authcore_action_token_rejected_total",
	MetricAccountConfirmed:    "authcore_account_confirmed_total",
	MetricPasswordReset:       "authcore_password_reset_total",
	MetricMailFailure:         "authcore_mail_failure_total",
}

var metricHelp = [metricIDCount]string{
	MetricLoginSuccess:        "Successful logins.",
	MetricLoginFailure:        "Rejected login attempts.",
	MetricRefreshSuccess:      "Successful access-token refreshes.",
	MetricRefreshFailure:      "Rejected refresh attempts.",
	MetricRevoke:              "Explicit session revocations.",
	MetricSessionOverwrite:    "Logins that displaced a live session.",
	MetricRateLimitHit:        "Requests rejected by admission control.",
	MetricStoreFailure:        "Fatal shared-store failures.",
	MetricActionTokenIssued:   "Action tokens minted, all contexts.",
	MetricActionTokenRejected: "Action tokens that failed verification.",
	MetricAccountConfirmed:    "Completed account confirmations.",
	MetricPasswordReset:       "Completed password resets.",
	MetricMailFailure:         "Mail deliveries that returned an error.",
}

// Name returns the exposition name of the metric, or "" for unknown IDs.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return ""
	}
	return metricNames[id]
}

// Help returns the exposition help text of the metric, or "" for unknown
// IDs.
func (id MetricID) Help() string {
	if id >= metricIDCount {
		return ""
	}
	return metricHelp[id]
}

// MetricIDs returns all defined metric IDs in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, metricIDCount)
	for i := range ids {
		ids[i] = MetricID(i)
	}
	return ids
}

const cacheLineSize = 64

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed table of lock-free counters. A nil *Metrics is valid
// and counts nothing.
type Metrics struct {
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns an empty metrics table.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads the counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter. The copy is not atomic across counters;
// it is a monitoring view, not a ledger.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
