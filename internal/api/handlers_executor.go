package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
	"github.com/rs/zerolog/log"
)

// ExecutorGetHandler handles GET /api/executor/
// 404 signals the client to show the assignment form.
func (s *Server) ExecutorGetHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	executor, err := s.store.GetExecutorByAccount(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "No executor assigned"})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         executor.Name,
		"email":        executor.Email,
		"status":       executor.Status,
		"relationship": executor.Relationship,
	})
}

// ExecutorUpsertHandler handles POST /api/executor/
// The upsert touches contact fields only; status and verified stay under
// administrative control.
func (s *Server) ExecutorUpsertHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	var req struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		Relationship string `json:"relationship"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "executor name and a valid email are required")
		return
	}

	executor := &models.Executor{
		AccountID:    account.ID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Relationship: req.Relationship,
	}
	if err := s.store.UpsertExecutor(r.Context(), executor); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Executor assigned successfully"})
}

// VerifyExecutorHandler handles POST /api/verify-executor/ (public, multipart).
// The executor has no account, so the only access control is the capability
// pair: the given email must match a row currently in Verification_Pending.
func (s *Server) VerifyExecutorHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No document provided")
		return
	}
	defer file.Close()

	executor, err := s.store.FindPendingExecutorByEmail(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusNotFound, "Invalid request or unauthorized email.")
		return
	}

	ref, err := s.docs.Save(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	// The upload alone never grants verification: the store forces the
	// verified flag back to false pending manual review.
	if err := s.store.SetExecutorDocument(r.Context(), executor.ID, ref); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Int64("executor_id", executor.ID).Str("ref", ref).Msg("verification document uploaded")
	writeJSON(w, http.StatusOK, map[string]any{"message": "Documents uploaded. Admin will verify shortly."})
}
