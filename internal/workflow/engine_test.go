package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
)

// stubStore implements just the Store methods the engine touches.
// Calling anything else panics through the embedded nil interface.
type stubStore struct {
	storage.Store
	executors map[int64]*models.Executor
	accounts  map[int64]*models.Account
	log       []*models.NotificationEntry
}

func newStubStore() *stubStore {
	return &stubStore{
		executors: map[int64]*models.Executor{},
		accounts:  map[int64]*models.Account{},
	}
}

func (s *stubStore) addExecutor(id int64, status models.ExecutorStatus, verified bool) *models.Executor {
	s.accounts[id] = &models.Account{ID: id, FullName: "Owner", Email: "owner@example.com"}
	e := &models.Executor{
		ID:        id,
		AccountID: id,
		Name:      "Executor",
		Email:     "exec-" + string(rune('a'+id)) + "@example.com",
		Status:    status,
		Verified:  verified,
	}
	s.executors[id] = e
	return e
}

func (s *stubStore) GetExecutorByID(ctx context.Context, id int64) (*models.Executor, error) {
	if e, ok := s.executors[id]; ok {
		return e, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) UpdateExecutorStatus(ctx context.Context, id int64, status models.ExecutorStatus, verified bool) error {
	e, ok := s.executors[id]
	if !ok {
		return storage.ErrNotFound
	}
	e.Status = status
	e.Verified = verified
	return nil
}

func (s *stubStore) AppendNotification(ctx context.Context, n *models.NotificationEntry) error {
	s.log = append(s.log, n)
	return nil
}

type recordingSender struct {
	deadMan  []int64
	granted  []int64
	failNext map[int64]bool // executor ID → fail the next send
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failNext: map[int64]bool{}}
}

func (r *recordingSender) SendDeadManNotice(e *models.Executor, ownerName string) error {
	if r.failNext[e.ID] {
		return errors.New("dial tcp: connection refused")
	}
	r.deadMan = append(r.deadMan, e.ID)
	return nil
}

func (r *recordingSender) SendAccessGranted(e *models.Executor, ownerName string) error {
	if r.failNext[e.ID] {
		return errors.New("dial tcp: connection refused")
	}
	r.granted = append(r.granted, e.ID)
	return nil
}

func TestNotifyDeadManSwitchTransitionsOnlyOnSendSuccess(t *testing.T) {
	store := newStubStore()
	store.addExecutor(1, models.StatusActive, false)
	store.addExecutor(2, models.StatusActive, false)
	store.addExecutor(3, models.StatusActive, false)

	mail := newRecordingSender()
	mail.failNext[2] = true

	engine := NewEngine(store, mail)
	results := engine.NotifyDeadManSwitch(context.Background(), []int64{1, 2, 3})

	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Detail, "connection refused")
	assert.True(t, results[2].OK)

	assert.Equal(t, models.StatusPending, store.executors[1].Status)
	assert.Equal(t, models.StatusActive, store.executors[2].Status, "failed send must not transition")
	assert.Equal(t, models.StatusPending, store.executors[3].Status)
	assert.Equal(t, []int64{1, 3}, mail.deadMan)

	// Every attempt, failed or not, is logged
	require.Len(t, store.log, 3)
	assert.True(t, store.log[0].Succeeded)
	assert.False(t, store.log[1].Succeeded)
	assert.NotEmpty(t, store.log[1].Error)
}

func TestNotifyDeadManSwitchMissingExecutor(t *testing.T) {
	store := newStubStore()
	engine := NewEngine(store, newRecordingSender())

	results := engine.NotifyDeadManSwitch(context.Background(), []int64{42})
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Detail, "loading executor")
}

func TestApplyAdminEditFiresOnTransitionOnly(t *testing.T) {
	store := newStubStore()
	store.addExecutor(1, models.StatusPending, true)
	mail := newRecordingSender()
	engine := NewEngine(store, mail)

	granted := models.StatusGranted
	executor, warning, err := engine.ApplyAdminEdit(context.Background(), 1, AdminEdit{Status: &granted})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, models.StatusGranted, executor.Status)
	assert.Equal(t, []int64{1}, mail.granted)

	// Saving the already granted record again must not re-send
	_, warning, err = engine.ApplyAdminEdit(context.Background(), 1, AdminEdit{Status: &granted})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Len(t, mail.granted, 1)
}

func TestApplyAdminEditUnverifiedGrantDoesNotSend(t *testing.T) {
	store := newStubStore()
	store.addExecutor(1, models.StatusPending, false)
	mail := newRecordingSender()
	engine := NewEngine(store, mail)

	granted := models.StatusGranted
	executor, warning, err := engine.ApplyAdminEdit(context.Background(), 1, AdminEdit{Status: &granted})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Empty(t, mail.granted)

	// The edit itself still lands
	assert.Equal(t, models.StatusGranted, executor.Status)
	assert.Equal(t, models.StatusGranted, store.executors[1].Status)
}

func TestApplyAdminEditSendFailureKeepsSavedEdit(t *testing.T) {
	store := newStubStore()
	store.addExecutor(1, models.StatusPending, true)
	mail := newRecordingSender()
	mail.failNext[1] = true
	engine := NewEngine(store, mail)

	granted := models.StatusGranted
	executor, warning, err := engine.ApplyAdminEdit(context.Background(), 1, AdminEdit{Status: &granted})
	require.NoError(t, err)
	assert.Contains(t, warning, "sending access-granted mail failed")
	assert.Equal(t, models.StatusGranted, executor.Status)
	assert.Equal(t, models.StatusGranted, store.executors[1].Status)
}

func TestApplyAdminEditVerifiedFlagAloneCanFire(t *testing.T) {
	// Granting first, verifying later: the send fires when verified flips
	// while the status transition happens in the same edit.
	store := newStubStore()
	store.addExecutor(1, models.StatusPending, false)
	mail := newRecordingSender()
	engine := NewEngine(store, mail)

	granted := models.StatusGranted
	verified := true
	_, _, err := engine.ApplyAdminEdit(context.Background(), 1, AdminEdit{Status: &granted, Verified: &verified})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, mail.granted)
}

func TestResendAccessGrantedGate(t *testing.T) {
	store := newStubStore()
	store.addExecutor(1, models.StatusGranted, true)  // eligible
	store.addExecutor(2, models.StatusPending, true)  // not granted
	store.addExecutor(3, models.StatusGranted, false) // not verified
	mail := newRecordingSender()
	engine := NewEngine(store, mail)

	results := engine.ResendAccessGranted(context.Background(), []int64{1, 2, 3})
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Detail, "skipped")
	assert.False(t, results[2].OK)

	assert.Equal(t, []int64{1}, mail.granted)
	// The resend action never mutates fields
	assert.Equal(t, models.StatusPending, store.executors[2].Status)
	assert.False(t, store.executors[3].Verified)
}
