package models

import "time"

// NotificationKind identifies which lifecycle email was sent.
type NotificationKind string

const (
	// KindDeadManSwitch is the initial notification asking the executor to
	// verify their identity.
	KindDeadManSwitch NotificationKind = "dead_man_switch"
	// KindAccessGranted is the final notification releasing access.
	KindAccessGranted NotificationKind = "access_granted"
)

// NotificationEntry records one email send attempt against an executor.
// Failures are recorded too — the log is the audit trail administrators
// consult before re-invoking a batch action.
type NotificationEntry struct {
	ID         int64
	ExecutorID int64
	Kind       NotificationKind
	Succeeded  bool
	Error      string
	SentAt     time.Time
}
