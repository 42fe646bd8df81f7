package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/usertest"
)

type handlerEnv struct {
	h        *user.Handler
	primary  *usertest.Store
	replica  *usertest.Store
	sessions *session.Service
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions, err := session.NewService(session.Config{Secret: []byte("k"), Lifetime: time.Hour}, sessionrepo.NewRevocationRepo(rdb, ""))
	require.NoError(t, err)

	primary := usertest.New()
	replica := primary
	env := &handlerEnv{primary: primary, replica: replica, sessions: sessions}
	env.h = user.NewHandler(newService(t), primary, replica, sessions, zap.NewNop().Sugar())
	return env
}

func postJSON(t *testing.T, fn http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf)))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSignupHandlerIssuesTokenForEmail(t *testing.T) {
	env := newHandlerEnv(t)

	rec := postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "a@x.com", "password": "pw", "created_at": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "User signed up", body["message"])

	claims, err := env.sessions.Validate(context.Background(), body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	stored, _ := env.primary.Get("a@x.com")
	assert.Equal(t, stored.ID, claims.UserID)
	assert.Zero(t, env.primary.Open())
}

func TestSignupHandlerConflict(t *testing.T) {
	env := newHandlerEnv(t)
	req := map[string]string{"email": "a@x.com", "password": "pw"}
	require.Equal(t, http.StatusCreated, postJSON(t, env.h.Signup, "/api/auth/signup", req).Code)

	rec := postJSON(t, env.h.Signup, "/api/auth/signup", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "User already exists", body["message"])
	assert.NotContains(t, body, "access_token")
	assert.Zero(t, env.primary.Open())
}

func TestSignupHandlerFailures(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		env := newHandlerEnv(t)
		rec := httptest.NewRecorder()
		env.h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("validation", func(t *testing.T) {
		env := newHandlerEnv(t)
		rec := postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{"email": "a@x.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("store down", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.primary.SetDown(true)
		rec := postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{"email": "a@x.com", "password": "pw"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Database Down", decode(t, rec)["message"])
	})
	t.Run("store error", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.primary.FailWith(assert.AnError)
		rec := postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{"email": "a@x.com", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Unable to sign up", decode(t, rec)["message"])
		assert.Zero(t, env.primary.Open())
	})
}

func TestLoginHandler(t *testing.T) {
	env := newHandlerEnv(t)
	require.Equal(t, http.StatusCreated, postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{"email": "a@x.com", "password": "pw"}).Code)

	rec := postJSON(t, env.h.Login, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	_, err := env.sessions.Validate(context.Background(), body["access_token"].(string))
	assert.NoError(t, err)

	wrongPassword := postJSON(t, env.h.Login, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "nope"})
	unknownEmail := postJSON(t, env.h.Login, "/api/auth/login", map[string]string{"email": "b@x.com", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Zero(t, env.primary.Open())
}

func TestLoginHandlerStoreDown(t *testing.T) {
	env := newHandlerEnv(t)
	env.primary.SetDown(true)
	rec := postJSON(t, env.h.Login, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfileHandler(t *testing.T) {
	env := newHandlerEnv(t)
	require.Equal(t, http.StatusCreated, postJSON(t, env.h.Signup, "/api/auth/signup", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "a@x.com", "password": "pw", "created_at": "2024-03-01T10:00:00Z",
	}).Code)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
		req = req.WithContext(session.WithClaims(req.Context(), &session.Claims{Email: "a@x.com", UserID: 1}))
		rec := httptest.NewRecorder()
		env.h.Profile(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"first_name":"Ada","last_name":"Lovelace","email":"a@x.com","created_at":"2024-03-01T10:00:00Z","loyalty_card_id":null}`, rec.Body.String())

	env.primary.Delete("a@x.com")
	assert.Equal(t, http.StatusUnauthorized, get().Code)

	env.replica.SetDown(true)
	assert.Equal(t, http.StatusInternalServerError, get().Code)
	assert.Zero(t, env.replica.Open())
}

func TestProfileHandlerUsesReplica(t *testing.T) {
	env := newHandlerEnv(t)
	replica := usertest.New()
	h := user.NewHandler(newService(t), env.primary, replica, env.sessions, zap.NewNop().Sugar())
	require.Equal(t, http.StatusCreated, postJSON(t, h.Signup, "/api/auth/signup", map[string]string{"email": "a@x.com", "password": "pw"}).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req = req.WithContext(session.WithClaims(req.Context(), &session.Claims{Email: "a@x.com"}))
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	// the replica has not seen the row, so the lookup went there rather than to primary
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileHandlerWithoutClaims(t *testing.T) {
	env := newHandlerEnv(t)
	rec := httptest.NewRecorder()
	env.h.Profile(rec, httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
