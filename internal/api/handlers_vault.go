package api

import (
	"errors"
	"net/http"

	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
)

// VaultGetHandler handles GET /api/vault/
// An uninitialized vault is not an error: the client gets a sentinel
// message and shows the empty state.
func (s *Server) VaultGetHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	vault, err := s.store.GetVault(r.Context(), account.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"message": "Vault not initialized"})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vaultResponse(vault))
}

// VaultPutHandler handles POST /api/vault/
func (s *Server) VaultPutHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	var req struct {
		Ciphertext string `json:"ciphertext"`
		IV         string `json:"iv"`
		Salt       string `json:"salt"`
		ItemCount  int    `json:"item_count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ciphertext == "" || req.IV == "" || req.Salt == "" {
		writeError(w, http.StatusBadRequest, "ciphertext, iv and salt are required")
		return
	}
	if req.ItemCount < 0 {
		writeError(w, http.StatusBadRequest, "item_count must not be negative")
		return
	}

	vault := &models.Vault{
		AccountID:  account.ID,
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		Salt:       req.Salt,
		ItemCount:  req.ItemCount,
	}
	if err := s.store.UpsertVault(r.Context(), vault); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vaultResponse(vault))
}

func vaultResponse(v *models.Vault) map[string]any {
	return map[string]any{
		"ciphertext": v.Ciphertext,
		"iv":         v.IV,
		"salt":       v.Salt,
		"item_count": v.ItemCount,
		"updated_at": v.UpdatedAt,
	}
}

// LettersListHandler handles GET /api/letters/
func (s *Server) LettersListHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	letters, err := s.store.ListLetters(r.Context(), account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(letters))
	for _, l := range letters {
		out = append(out, letterResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// LetterCreateHandler handles POST /api/letters/
// Letters are append-only: no update or delete endpoint exists.
func (s *Server) LetterCreateHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromCtx(r.Context())

	var req struct {
		Title      string `json:"title"`
		Recipient  string `json:"recipient"`
		Ciphertext string `json:"ciphertext"`
		IV         string `json:"iv"`
		Salt       string `json:"salt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "title and recipient are required")
		return
	}

	letter := &models.Letter{
		AccountID:  account.ID,
		Title:      req.Title,
		Recipient:  req.Recipient,
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		Salt:       req.Salt,
	}
	if err := s.store.CreateLetter(r.Context(), letter); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, letterResponse(letter))
}

func letterResponse(l *models.Letter) map[string]any {
	return map[string]any{
		"id":         l.ID,
		"title":      l.Title,
		"recipient":  l.Recipient,
		"ciphertext": l.Ciphertext,
		"iv":         l.IV,
		"salt":       l.Salt,
		"created_at": l.CreatedAt,
	}
}
