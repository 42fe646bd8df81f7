package loyalty

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

// Handler contains dependencies for handling loyalty endpoints.
type Handler struct {
	svc     *Service
	primary user.Acquirer
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, primary user.Acquirer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, primary: primary, logger: logger}
}

// CardResponse is returned both on assignment and on conflict.
type CardResponse struct {
	Message       string `json:"message"`
	LoyaltyCardID string `json:"loyalty_card_id"`
}

// Add must run behind session.RequireAuth.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := session.ClaimsFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	store, err := h.primary.Acquire(r.Context())
	if err != nil {
		h.logger.Errorw("acquire credential store", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		return
	}
	defer store.Close()

	code, err := h.svc.Assign(r.Context(), store, claims.Email)
	if err != nil {
		var assigned *AlreadyAssignedError
		switch {
		case errors.As(err, &assigned):
			utilities.WriteJSON(w, http.StatusConflict, CardResponse{Message: "Loyalty already exists", LoyaltyCardID: assigned.Code})
		case errors.Is(err, user.ErrInvalidCredentials):
			utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, user.ErrStoreUnavailable):
			h.logger.Errorw("assign loyalty card", "uid", claims.UserID, "err", err)
			utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		default:
			h.logger.Errorw("assign loyalty card", "uid", claims.UserID, "err", err)
			utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to add to DB")
		}
		return
	}
	h.logger.Infow("loyalty card assigned", "uid", claims.UserID)
	utilities.WriteJSON(w, http.StatusOK, CardResponse{Message: "loyalty card added", LoyaltyCardID: code})
}
