package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

const maxBodyBytes = 1 << 20

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(id session.Identity) (string, error)
}

// Handler exposes HTTP endpoints for user operations (signup / login / profile).
type Handler struct {
	svc     *UserService
	primary Acquirer
	replica Acquirer
	tokens  TokenIssuer
	logger  *zap.SugaredLogger
}

// NewHandler wires the handler. Profile reads go to replica; a nil replica falls back to primary.
func NewHandler(svc *UserService, primary, replica Acquirer, tokens TokenIssuer, logger *zap.SugaredLogger) *Handler {
	if replica == nil {
		replica = primary
	}
	return &Handler{svc: svc, primary: primary, replica: replica, tokens: tokens, logger: logger}
}

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CreatedAt string `json:"created_at"`
}

// TokenResponse carries a freshly issued session token.
type TokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	store, err := h.primary.Acquire(r.Context())
	if err != nil {
		h.logger.Errorw("acquire credential store", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		return
	}
	defer store.Close()

	u, err := h.svc.Signup(r.Context(), store, SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			utilities.WriteMessage(w, http.StatusConflict, "User already exists")
		case errors.Is(err, ErrValidation):
			h.logger.Debugw("signup rejected", "err", err)
			utilities.WriteMessage(w, http.StatusBadRequest, "Invalid signup details")
		case errors.Is(err, ErrStoreUnavailable):
			h.logger.Errorw("signup failed", "err", err)
			utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		default:
			h.logger.Warnw("signup failed", "err", err)
			utilities.WriteMessage(w, http.StatusBadRequest, "Unable to sign up")
		}
		return
	}

	token, err := h.tokens.Issue(session.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		h.logger.Errorw("issue token after signup", "uid", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to sign up")
		return
	}
	h.logger.Infow("user signed up", "uid", u.ID)
	utilities.WriteJSON(w, http.StatusCreated, TokenResponse{Message: "User signed up", AccessToken: token})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	store, err := h.primary.Acquire(r.Context())
	if err != nil {
		h.logger.Errorw("acquire credential store", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		return
	}
	defer store.Close()

	u, err := h.svc.Authenticate(r.Context(), store, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Debugw("login failed", "err", err)
			utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to login")
		return
	}

	token, err := h.tokens.Issue(session.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		h.logger.Errorw("issue token after login", "uid", u.ID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to login")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{Message: "Login successful", AccessToken: token})
}

// Profile must run behind session.RequireAuth.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := session.ClaimsFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	store, err := h.replica.Acquire(r.Context())
	if err != nil {
		h.logger.Errorw("acquire credential store", "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Database Down")
		return
	}
	defer store.Close()

	p, err := h.svc.Profile(r.Context(), store, claims.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Errorw("load profile", "uid", claims.UserID, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Unable to load profile")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
