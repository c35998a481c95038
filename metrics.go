package goShare

import (
	"sync/atomic"
)

// MetricID defines a public type used by goShare APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the session engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the session engine.
	MetricLoginFailure
	// MetricAccountLocked counts lockouts triggered by repeated failures.
	MetricAccountLocked
	// MetricLoginLockedRejected counts logins refused while a lock is in force.
	MetricLoginLockedRejected
	// MetricLoginDisabledRejected counts logins refused for disabled accounts.
	MetricLoginDisabledRejected
	// MetricRefreshSuccess is an exported constant or variable used by the session engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session engine.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts refresh tokens that verified but were absent from the ledger.
	MetricRefreshReuseDetected
	// MetricLogout is an exported constant or variable used by the session engine.
	MetricLogout
	// MetricRegisterSuccess is an exported constant or variable used by the session engine.
	MetricRegisterSuccess
	// MetricRegisterDuplicate is an exported constant or variable used by the session engine.
	MetricRegisterDuplicate
	// MetricPasswordResetRequest is an exported constant or variable used by the session engine.
	MetricPasswordResetRequest
	// MetricOTPVerifySuccess is an exported constant or variable used by the session engine.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure is an exported constant or variable used by the session engine.
	MetricOTPVerifyFailure
	// MetricPasswordResetConfirm is an exported constant or variable used by the session engine.
	MetricPasswordResetConfirm
	// MetricAuthenticateFailure counts bearer tokens rejected by AuthenticateRequest.
	MetricAuthenticateFailure
	// MetricAccountStatusChange is an exported constant or variable used by the session engine.
	MetricAccountStatusChange
	// MetricAccountUnlock is an exported constant or variable used by the session engine.
	MetricAccountUnlock
	// MetricInternalError counts operations that failed on an infrastructure error.
	MetricInternalError
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:          "login_success",
	MetricLoginFailure:          "login_failure",
	MetricAccountLocked:         "account_locked",
	MetricLoginLockedRejected:   "login_locked_rejected",
	MetricLoginDisabledRejected: "login_disabled_rejected",
	MetricRefreshSuccess:        "refresh_success",
	MetricRefreshFailure:        "refresh_failure",
	MetricRefreshReuseDetected:  "refresh_reuse_detected",
	MetricLogout:                "logout",
	MetricRegisterSuccess:       "register_success",
	MetricRegisterDuplicate:     "register_duplicate",
	MetricPasswordResetRequest:  "password_reset_request",
	MetricOTPVerifySuccess:      "otp_verify_success",
	MetricOTPVerifyFailure:      "otp_verify_failure",
	MetricPasswordResetConfirm:  "password_reset_confirm",
	MetricAuthenticateFailure:   "authenticate_failure",
	MetricAccountStatusChange:   "account_status_change",
	MetricAccountUnlock:         "account_unlock",
	MetricInternalError:         "internal_error",
}

// String returns the snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs returns every defined metric in declaration order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goShare APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by goShare APIs.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
