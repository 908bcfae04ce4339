package core

import (
	"fmt"
)

// ErrorCategory classifies an error so callers can react to the kind of
// failure rather than pattern-matching message text.
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota
	ErrCategoryConfig                   // missing/malformed config key or capability
	ErrCategoryConnection               // server unreachable, max retries exceeded
	ErrCategoryDriver                   // remote driver rejected the session
	ErrCategoryProbe                    // external tool check failed
	ErrCategoryInspection               // UI query failed or went stale
)

// String returns the string representation of ErrorCategory.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryDriver:
		return "driver"
	case ErrCategoryProbe:
		return "probe"
	case ErrCategoryInspection:
		return "inspection"
	default:
		return "unknown"
	}
}

// HarnessError is a structured error with category, machine-readable code
// and a remediation hint. Each error kind carries its own remediation so a
// failed run prints an actionable next step instead of a bare stack trace.
type HarnessError struct {
	Category    ErrorCategory
	Code        string // machine-readable: missing_capability, server_unreachable, ...
	Message     string // human-readable message
	Remediation string // one actionable hint for this kind of failure
	Cause       error  // underlying error
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause.
func (e *HarnessError) WithCause(cause error) *HarnessError {
	return &HarnessError{
		Category:    e.Category,
		Code:        e.Code,
		Message:     e.Message,
		Remediation: e.Remediation,
		Cause:       cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *HarnessError) WithMessage(format string, v ...interface{}) *HarnessError {
	return &HarnessError{
		Category:    e.Category,
		Code:        e.Code,
		Message:     fmt.Sprintf(format, v...),
		Remediation: e.Remediation,
		Cause:       e.Cause,
	}
}

// Predefined errors, one per distinguishable failure kind.
var (
	ErrMissingConfigKey = &HarnessError{
		Category:    ErrCategoryConfig,
		Code:        "missing_config_key",
		Message:     "missing required configuration key",
		Remediation: "check config.yaml against the sample configuration",
	}
	ErrMissingCapability = &HarnessError{
		Category:    ErrCategoryConfig,
		Code:        "missing_capability",
		Message:     "missing required capability",
		Remediation: "set deviceName and platformVersion on the device profile",
	}
	ErrDeviceNotConfigured = &HarnessError{
		Category:    ErrCategoryConfig,
		Code:        "device_not_configured",
		Message:     "device not found in configuration",
		Remediation: "add the device to the devices section of config.yaml or unset DEVICE_NAME",
	}
	ErrServerUnreachable = &HarnessError{
		Category:    ErrCategoryConnection,
		Code:        "server_unreachable",
		Message:     "could not connect to automation server",
		Remediation: "check the Appium process is running and the port is not blocked (curl http://127.0.0.1:4723/status)",
	}
	ErrPortOccupied = &HarnessError{
		Category:    ErrCategoryConnection,
		Code:        "port_occupied",
		Message:     "server port is occupied by another process",
		Remediation: "free the port or point appium_server.port at a different one (lsof -i :<port>)",
	}
	ErrServerStartTimeout = &HarnessError{
		Category:    ErrCategoryConnection,
		Code:        "server_start_timeout",
		Message:     "automation server did not become healthy in time",
		Remediation: "run appium manually and inspect its startup log",
	}
	ErrSessionRejected = &HarnessError{
		Category:    ErrCategoryDriver,
		Code:        "session_rejected",
		Message:     "remote driver rejected the session",
		Remediation: "check device connection (adb devices) and that the app is installed",
	}
	ErrDeviceNotConnected = &HarnessError{
		Category:    ErrCategoryDriver,
		Code:        "device_not_connected",
		Message:     "target device is not visible to the device manager",
		Remediation: "start the emulator or reconnect the device, then verify with adb devices",
	}
	ErrProbeFailed = &HarnessError{
		Category:    ErrCategoryProbe,
		Code:        "probe_failed",
		Message:     "external tool probe failed",
		Remediation: "install the missing tool or ensure it is on PATH",
	}
	ErrNoPageSource = &HarnessError{
		Category:    ErrCategoryInspection,
		Code:        "no_page_source",
		Message:     "could not read page source from the session",
		Remediation: "verify the session is still alive and the app is in the foreground",
	}
)
