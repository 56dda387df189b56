package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/org/endura/internal/storage"
	"github.com/org/endura/internal/workflow"
	"github.com/org/endura/pkg/models"
)

// AdminListExecutorsHandler handles GET /api/admin/executors?status=...
func (s *Server) AdminListExecutorsHandler(w http.ResponseWriter, r *http.Request) {
	var status models.ExecutorStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, err := models.ParseExecutorStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}

	executors, err := s.store.ListExecutors(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(executors))
	for _, e := range executors {
		out = append(out, adminExecutorResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"executors": out})
}

func adminExecutorResponse(e *models.Executor) map[string]any {
	resp := map[string]any{
		"id":           e.ID,
		"account_id":   e.AccountID,
		"name":         e.Name,
		"email":        e.Email,
		"phone":        e.Phone,
		"relationship": e.Relationship,
		"status":       e.Status,
		"verified":     e.Verified,
		"updated_at":   e.UpdatedAt,
	}
	if e.DocumentRef != nil {
		resp["document_ref"] = *e.DocumentRef
	}
	return resp
}

func decodeBatchIDs(r *http.Request) ([]int64, error) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if len(req.IDs) == 0 {
		return nil, errors.New("ids required")
	}
	return req.IDs, nil
}

func batchSummary(results []workflow.Result) map[string]any {
	succeeded := 0
	for _, res := range results {
		if res.OK {
			succeeded++
		}
	}
	return map[string]any{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	}
}

// AdminNotifyHandler handles POST /api/admin/executors/notify — the
// "send dead-man notification" bulk action.
func (s *Server) AdminNotifyHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := decodeBatchIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results := s.flow.NotifyDeadManSwitch(r.Context(), ids)
	writeJSON(w, http.StatusOK, batchSummary(results))
}

// AdminGrantEmailHandler handles POST /api/admin/executors/grant-email — the
// "send access granted email" bulk action. It never mutates state.
func (s *Server) AdminGrantEmailHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := decodeBatchIDs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results := s.flow.ResendAccessGranted(r.Context(), ids)
	writeJSON(w, http.StatusOK, batchSummary(results))
}

// AdminEditExecutorHandler handles PATCH /api/admin/executors/{id}.
// A transition into Access_Granted with verified=true fires the
// access-granted email as a side effect of the save.
func (s *Server) AdminEditExecutorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid executor id")
		return
	}

	var req struct {
		Status   *string `json:"status"`
		Verified *bool   `json:"verified"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == nil && req.Verified == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	edit := workflow.AdminEdit{Verified: req.Verified}
	if req.Status != nil {
		status, err := models.ParseExecutorStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		edit.Status = &status
	}

	executor, warning, err := s.flow.ApplyAdminEdit(r.Context(), id, edit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "executor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"executor": adminExecutorResponse(executor)}
	if warning != "" {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

// AdminNotificationsHandler handles GET /api/admin/notifications.
func (s *Server) AdminNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	filter := storage.NotificationFilter{Limit: 100}
	q := r.URL.Query()
	if v := q.Get("executor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid executor_id")
			return
		}
		filter.ExecutorID = id
	}
	if v := q.Get("kind"); v != "" {
		filter.Kind = models.NotificationKind(v)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := s.store.ListNotifications(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":          e.ID,
			"executor_id": e.ExecutorID,
			"kind":        e.Kind,
			"succeeded":   e.Succeeded,
			"sent_at":     e.SentAt,
		}
		if e.Error != "" {
			item["error"] = e.Error
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}
