// Package workflow implements the dead-man-switch status workflow:
// Active → Verification_Pending → Access_Granted. Transitions are explicit
// functions guarded by preconditions; the access-granted notification can
// never be sent unless the record is both granted and verified.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/org/endura/internal/mailer"
	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "endura_notifications_total",
	Help: "Executor notification sends by kind and outcome.",
}, []string{"kind", "outcome"})

func init() {
	prometheus.MustRegister(notificationsTotal)
}

// Result reports the outcome of one record within a batch action.
type Result struct {
	ExecutorID int64  `json:"executor_id"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail,omitempty"`
}

// Engine executes the administrative workflow actions.
type Engine struct {
	store storage.Store
	mail  mailer.Sender
}

// NewEngine creates a workflow Engine.
func NewEngine(store storage.Store, mail mailer.Sender) *Engine {
	return &Engine{store: store, mail: mail}
}

// NotifyDeadManSwitch runs the dead-man notification over the selected
// executors. For each record the notice is mailed and, only on send success,
// the status moves to Verification_Pending. A failed send leaves the row
// untouched and is reported per-record; the batch never aborts.
func (e *Engine) NotifyDeadManSwitch(ctx context.Context, ids []int64) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, e.notifyOne(ctx, id))
	}
	return results
}

func (e *Engine) notifyOne(ctx context.Context, id int64) Result {
	executor, ownerName, err := e.load(ctx, id)
	if err != nil {
		return Result{ExecutorID: id, Detail: err.Error()}
	}

	if err := e.mail.SendDeadManNotice(executor, ownerName); err != nil {
		log.Warn().Int64("executor_id", id).Err(err).Msg("dead-man notice failed")
		e.record(ctx, id, models.KindDeadManSwitch, err)
		return Result{ExecutorID: id, Detail: fmt.Sprintf("sending notice: %v", err)}
	}
	e.record(ctx, id, models.KindDeadManSwitch, nil)

	if err := e.store.UpdateExecutorStatus(ctx, id, models.StatusPending, executor.Verified); err != nil {
		return Result{ExecutorID: id, Detail: fmt.Sprintf("updating status: %v", err)}
	}
	return Result{ExecutorID: id, OK: true}
}

// ResendAccessGranted re-sends the access-granted notification to the
// selected executors. It changes no fields and is gated purely on current
// state: records that are not yet granted or not verified are skipped with
// a per-record warning.
func (e *Engine) ResendAccessGranted(ctx context.Context, ids []int64) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, e.resendOne(ctx, id))
	}
	return results
}

func (e *Engine) resendOne(ctx context.Context, id int64) Result {
	executor, ownerName, err := e.load(ctx, id)
	if err != nil {
		return Result{ExecutorID: id, Detail: err.Error()}
	}
	if !executor.AccessReleasable() {
		return Result{ExecutorID: id, Detail: "skipped: executor is not both access-granted and verified"}
	}
	if err := e.mail.SendAccessGranted(executor, ownerName); err != nil {
		log.Warn().Int64("executor_id", id).Err(err).Msg("access-granted mail failed")
		e.record(ctx, id, models.KindAccessGranted, err)
		return Result{ExecutorID: id, Detail: fmt.Sprintf("sending mail: %v", err)}
	}
	e.record(ctx, id, models.KindAccessGranted, nil)
	return Result{ExecutorID: id, OK: true}
}

// AdminEdit is a partial update of the admin-owned executor fields.
type AdminEdit struct {
	Status   *models.ExecutorStatus
	Verified *bool
}

// ApplyAdminEdit persists a status/verified edit and fires the access-granted
// notification exactly once, on the transition into Access_Granted with
// verified true. Re-saving an already granted record never re-sends. The edit
// is saved before the send is attempted; a send failure is returned as a
// warning and the saved edit stands.
func (e *Engine) ApplyAdminEdit(ctx context.Context, id int64, edit AdminEdit) (*models.Executor, string, error) {
	executor, ownerName, err := e.load(ctx, id)
	if err != nil {
		return nil, "", err
	}

	oldStatus := executor.Status
	newStatus := oldStatus
	if edit.Status != nil {
		newStatus = *edit.Status
	}
	newVerified := executor.Verified
	if edit.Verified != nil {
		newVerified = *edit.Verified
	}

	if err := e.store.UpdateExecutorStatus(ctx, id, newStatus, newVerified); err != nil {
		return nil, "", fmt.Errorf("saving executor edit: %w", err)
	}
	executor.Status = newStatus
	executor.Verified = newVerified

	warning := ""
	if newStatus == models.StatusGranted && oldStatus != models.StatusGranted && newVerified {
		if err := e.mail.SendAccessGranted(executor, ownerName); err != nil {
			log.Warn().Int64("executor_id", id).Err(err).Msg("access-granted mail failed")
			e.record(ctx, id, models.KindAccessGranted, err)
			warning = fmt.Sprintf("status saved, but sending access-granted mail failed: %v", err)
		} else {
			e.record(ctx, id, models.KindAccessGranted, nil)
		}
	}
	return executor, warning, nil
}

// load fetches the executor and the display name of the owning account.
func (e *Engine) load(ctx context.Context, id int64) (*models.Executor, string, error) {
	executor, err := e.store.GetExecutorByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("loading executor %d: %w", id, err)
	}
	owner, err := e.store.GetAccountByID(ctx, executor.AccountID)
	if err != nil {
		return nil, "", fmt.Errorf("loading owner of executor %d: %w", id, err)
	}
	return executor, owner.FullName, nil
}

// record appends a notification log entry. Log failures must not break the
// workflow, so they are only logged.
func (e *Engine) record(ctx context.Context, executorID int64, kind models.NotificationKind, sendErr error) {
	outcome := "ok"
	entry := &models.NotificationEntry{
		ExecutorID: executorID,
		Kind:       kind,
		Succeeded:  sendErr == nil,
		SentAt:     time.Now().UTC(),
	}
	if sendErr != nil {
		outcome = "error"
		entry.Error = sendErr.Error()
	}
	notificationsTotal.WithLabelValues(string(kind), outcome).Inc()
	if err := e.store.AppendNotification(ctx, entry); err != nil {
		log.Warn().Int64("executor_id", executorID).Err(err).Msg("notification log write failed")
	}
}
