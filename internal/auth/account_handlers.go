package auth

import (
	"net/http"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/httpx"
)

// Logout handles POST /auth/logout. The presented token stays revoked
// until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Unauthorized("Authentication required"))
		return
	}

	if err := h.revocations.Revoke(r.Context(), identity.TokenID, identity.ExpiresAt); err != nil {
		httpx.Error(w, r, h.logger, apperr.Internal("revoke token", err))
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

// DeleteAccount handles DELETE /auth/account.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Unauthorized("Authentication required"))
		return
	}

	if err := h.users.Delete(r.Context(), identity.UserID); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	// the user is gone, so the token fails authentication anyway
	if err := h.revocations.Revoke(r.Context(), identity.TokenID, identity.ExpiresAt); err != nil {
		h.logger.Warn("failed to revoke token after account deletion", "error", err)
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Account deleted successfully"})
}
