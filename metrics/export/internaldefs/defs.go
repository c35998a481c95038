package internaldefs

import (
	goShare "github.com/MrEthical07/goShare"
)

// Namespace prefixes every exported metric name.
const Namespace = "goshare"

// CounterDef names one engine counter and carries its help text.
type CounterDef struct {
	ID   goShare.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in export order.
var CounterDefs = []CounterDef{
	{ID: goShare.MetricLoginSuccess, Name: "goshare_login_success_total", Help: "Successful login attempts."},
	{ID: goShare.MetricLoginFailure, Name: "goshare_login_failure_total", Help: "Failed login attempts."},
	{ID: goShare.MetricAccountLocked, Name: "goshare_account_locked_total", Help: "Lockouts triggered by repeated login failures."},
	{ID: goShare.MetricLoginLockedRejected, Name: "goshare_login_locked_rejected_total", Help: "Logins refused while a lockout was in force."},
	{ID: goShare.MetricLoginDisabledRejected, Name: "goshare_login_disabled_rejected_total", Help: "Logins refused for disabled accounts."},
	{ID: goShare.MetricRefreshSuccess, Name: "goshare_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goShare.MetricRefreshFailure, Name: "goshare_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goShare.MetricRefreshReuseDetected, Name: "goshare_refresh_reuse_detected_total", Help: "Refresh tokens presented after they left the ledger."},
	{ID: goShare.MetricLogout, Name: "goshare_logout_total", Help: "Logout operations."},
	{ID: goShare.MetricRegisterSuccess, Name: "goshare_register_success_total", Help: "Successful registrations."},
	{ID: goShare.MetricRegisterDuplicate, Name: "goshare_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goShare.MetricPasswordResetRequest, Name: "goshare_password_reset_request_total", Help: "Password reset codes issued."},
	{ID: goShare.MetricOTPVerifySuccess, Name: "goshare_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: goShare.MetricOTPVerifyFailure, Name: "goshare_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: goShare.MetricPasswordResetConfirm, Name: "goshare_password_reset_confirm_total", Help: "Completed password resets."},
	{ID: goShare.MetricAuthenticateFailure, Name: "goshare_authenticate_failure_total", Help: "Bearer tokens rejected on authenticated requests."},
	{ID: goShare.MetricAccountStatusChange, Name: "goshare_account_status_change_total", Help: "Admin enable and disable operations."},
	{ID: goShare.MetricAccountUnlock, Name: "goshare_account_unlock_total", Help: "Admin unlock operations."},
	{ID: goShare.MetricInternalError, Name: "goshare_internal_error_total", Help: "Operations failed by an infrastructure error."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "goshare_audit_dropped_total"

// GaugeDef names one event gateway series.
type GaugeDef struct {
	Name    string
	Help    string
	Counter bool
}

// Gateway series, in the field order of gateway.Stats.
var (
	GatewayLive       = GaugeDef{Name: "goshare_gateway_connections", Help: "Live event gateway connections."}
	GatewayAccepted   = GaugeDef{Name: "goshare_gateway_accepted_total", Help: "Connections admitted after the token check.", Counter: true}
	GatewayRejected   = GaugeDef{Name: "goshare_gateway_rejected_total", Help: "Connections closed for a missing or invalid token.", Counter: true}
	GatewayTerminated = GaugeDef{Name: "goshare_gateway_terminated_total", Help: "Connections terminated by the heartbeat sweep.", Counter: true}
	GatewayDelivered  = GaugeDef{Name: "goshare_gateway_delivered_total", Help: "Event frames written to clients.", Counter: true}
	GatewaySendFailed = GaugeDef{Name: "goshare_gateway_send_failed_total", Help: "Event frames that failed to write.", Counter: true}
)
