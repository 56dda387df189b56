package models

import (
	"fmt"
	"time"
)

// ExecutorStatus is the dead-man-switch workflow state of an executor.
type ExecutorStatus string

const (
	// StatusActive means the account owner is presumed alive; nothing has
	// been triggered.
	StatusActive ExecutorStatus = "Active"
	// StatusPending means the dead-man notification has been sent and the
	// executor has been asked to prove their identity.
	StatusPending ExecutorStatus = "Verification_Pending"
	// StatusGranted means an administrator has confirmed the executor's
	// identity and released access.
	StatusGranted ExecutorStatus = "Access_Granted"
)

// ParseExecutorStatus validates a status string from an API request.
func ParseExecutorStatus(s string) (ExecutorStatus, error) {
	switch ExecutorStatus(s) {
	case StatusActive, StatusPending, StatusGranted:
		return ExecutorStatus(s), nil
	}
	return "", fmt.Errorf("unknown executor status %q", s)
}

// Executor is the trusted third party designated to receive a user's vault
// and letters. At most one per account.
type Executor struct {
	ID           int64
	AccountID    int64
	Name         string
	Email        string
	Phone        string
	Relationship string
	DocumentRef  *string
	Status       ExecutorStatus
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccessReleasable reports whether the access-granted notification may be
// sent for this record: access must have been granted AND the uploaded
// identity document must have been manually verified by an administrator.
func (e *Executor) AccessReleasable() bool {
	return e.Status == StatusGranted && e.Verified
}
