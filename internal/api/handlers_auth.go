package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/org/endura/internal/auth"
	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
	"github.com/rs/zerolog/log"
)

const minPasswordLength = 8

// RegisterHandler handles POST /api/register/
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	account := &models.Account{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "an account with this email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("email", account.Email).Msg("account registered")
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        account.ID,
		"email":     account.Email,
		"full_name": account.FullName,
	})
}

// LoginHandler handles POST /api/login/
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.store.GetAccountByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.store.TouchLastLogin(r.Context(), account.ID, time.Now().UTC()); err != nil {
		log.Warn().Int64("account_id", account.ID).Err(err).Msg("updating last login failed")
	}

	pair, err := s.sessions.Issue(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"user": map[string]any{
			"id":        account.ID,
			"email":     account.Email,
			"full_name": account.FullName,
		},
	})
}

// RefreshHandler handles POST /api/refresh/
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh token required")
		return
	}

	pair, _, err := s.sessions.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

// DashboardHandler handles GET /api/dashboard/
func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFromCtx(ctx)

	vaultCount := 0
	if vault, err := s.store.GetVault(ctx, account.ID); err == nil {
		vaultCount = vault.ItemCount
	}

	letterCount, err := s.store.CountLetters(ctx, account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hasExecutor := false
	if _, err := s.store.GetExecutorByAccount(ctx, account.ID); err == nil {
		hasExecutor = true
	}

	// Completion score: base 10 for signing up, +40 for a non-empty vault,
	// +20 for any letter, +30 for an assigned executor.
	score := 10
	if vaultCount > 0 {
		score += 40
	}
	if letterCount > 0 {
		score += 20
	}
	if hasExecutor {
		score += 30
	}

	hasExec := "No"
	if hasExecutor {
		hasExec = "Yes"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fullname":             account.FullName,
		"completionPercentage": score,
		"vaultItemsCount":      vaultCount,
		"lettersCount":         letterCount,
		"hasExecutor":          hasExec,
		"lastCheckIn":          account.LastSeen().Format("Jan 02, 2006"),
	})
}
