package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

// Revoker is the subset of Service the logout handler needs.
type Revoker interface {
	Revoke(ctx context.Context, claims *Claims) error
}

// Handler serves logout and the bare protected probe. Both run behind RequireAuth.
type Handler struct {
	svc    Revoker
	logger *zap.SugaredLogger
}

func NewHandler(svc Revoker, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}
	if err := h.svc.Revoke(r.Context(), claims); err != nil {
		if errors.Is(err, ErrExpiredOrInvalid) {
			utilities.WriteMessage(w, http.StatusUnauthorized, unauthorizedMessage)
			return
		}
		h.logger.Errorw("revoke token failed", "jti", claims.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to revoke token")
		return
	}
	h.logger.Infow("token revoked", "jti", claims.ID, "uid", claims.UserID)
	utilities.WriteMessage(w, http.StatusOK, "Access token revoked")
}

func (h *Handler) Protected(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}
