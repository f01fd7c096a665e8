package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/domain"
	"github.com/yatraavaghasia/Natours/internal/repository"
	"github.com/yatraavaghasia/Natours/internal/service"
)

type mockUserRepo struct {
	usersByID map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{usersByID: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	for _, u := range m.usersByID {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok || !user.Active {
		return domain.User{}, pgx.ErrNoRows
	}
	user.PasswordHash = ""
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string, includePassword bool) (domain.User, error) {
	for _, user := range m.usersByID {
		if user.Email == email && user.Active {
			if !includePassword {
				user.PasswordHash = ""
			}
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (domain.User, error) {
	for _, user := range m.usersByID {
		if user.Active &&
			user.PasswordResetToken == tokenHash &&
			user.PasswordResetExpires != nil &&
			user.PasswordResetExpires.After(now) {
			user.PasswordHash = ""
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) List(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, user := range m.usersByID {
		if user.Active {
			user.PasswordHash = ""
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id, name, email string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok || !user.Active {
		return domain.User{}, pgx.ErrNoRows
	}
	user.Name = name
	user.Email = email
	m.usersByID[id] = user
	user.PasswordHash = ""
	return user, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time, clearReset bool) error {
	user, ok := m.usersByID[id]
	if !ok || !user.Active {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &changedAt
	if clearReset {
		user.PasswordResetToken = ""
		user.PasswordResetExpires = nil
	}
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok || !user.Active {
		return pgx.ErrNoRows
	}
	user.PasswordResetToken = tokenHash
	user.PasswordResetExpires = &expiresAt
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) ClearResetToken(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok || !user.Active {
		return pgx.ErrNoRows
	}
	user.Active = false
	m.usersByID[id] = user
	return nil
}

type mockSender struct {
	resetCount int
	failWith   error
}

func (m *mockSender) SendWelcome(_ context.Context, _ domain.User, _ string) error {
	return nil
}

func (m *mockSender) SendPasswordReset(_ context.Context, _ domain.User, _ string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.resetCount++
	return nil
}

type testEnv struct {
	repo   *mockUserRepo
	sender *mockSender
	tokens *service.TokenService
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	repo := newMockUserRepo()
	sender := &mockSender{}
	tokens := service.NewTokenService("test-secret", time.Hour)
	authSvc := service.NewAuthService(logger, repo, sender, service.NewHasher(4), "http://localhost:8080")

	authMW := NewAuthMiddleware(logger, tokens, repo)
	authH := NewAuthHandler(logger, authSvc, tokens, 90, false)
	userH := NewUserHandler(logger, authSvc, repo)
	router := NewRouter(logger, false, authMW, authH, userH)

	return &testEnv{repo: repo, sender: sender, tokens: tokens, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T) (domain.User, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/users/signup", gin.H{
		"name":            "A",
		"email":           "a@x.com",
		"password":        "12345678",
		"confirmPassword": "12345678",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		Data  struct {
			User domain.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.Data.User, resp.Token
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/signup", gin.H{
		"name":            "A",
		"email":           "a@x.com",
		"password":        "12345678",
		"confirmPassword": "12345678",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "success" || resp["token"] == "" {
		t.Fatalf("unexpected envelope: %v", resp)
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("response must not expose any password field: %s", rec.Body.String())
	}

	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "jwt=") || !strings.Contains(strings.ToLower(cookie), "httponly") {
		t.Fatalf("expected http-only jwt cookie, got %q", cookie)
	}
}

func TestSignUp_PasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/signup", gin.H{
		"name":            "A",
		"email":           "a@x.com",
		"password":        "12345678",
		"confirmPassword": "87654321",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"fail"`) {
		t.Fatalf("expected fail envelope: %s", rec.Body.String())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", gin.H{
		"email":    "a@x.com",
		"password": "wrongpass",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Incorrect email or password!") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", gin.H{
		"email":    "a@x.com",
		"password": "12345678",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("expected token in body: %s", rec.Body.String())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/login", gin.H{"email": "a@x.com"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please provide email and password!") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/logout", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "jwt=loggedout") {
		t.Fatalf("expected sentinel cookie, got %q", cookie)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.signUp(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), user.Email) {
		t.Fatalf("expected own profile: %s", rec.Body.String())
	}
}

func TestMe_CookieToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/forgotPassword", gin.H{"email": "nobody@x.com"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "There is no user with this email address.") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
	if env.sender.resetCount != 0 {
		t.Fatalf("no email must be sent")
	}
}

func TestForgotPassword_Success(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/forgotPassword", gin.H{"email": "a@x.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Token sent to email!") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
	if env.sender.resetCount != 1 {
		t.Fatalf("expected one reset email")
	}
}

func TestResetPassword_FlowAndSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t)

	plaintext, hash, expiresAt, err := service.GenerateResetToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := env.repo.SetResetToken(context.Background(), user.ID, hash, expiresAt); err != nil {
		t.Fatalf("set reset token: %v", err)
	}

	rec := env.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext, gin.H{
		"password":        "newpass123",
		"confirmPassword": "newpass123",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/users/login", gin.H{
		"email":    "a@x.com",
		"password": "newpass123",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+plaintext, gin.H{
		"password":        "otherpass1",
		"confirmPassword": "otherpass1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("consumed token must be rejected: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Token is invalid or has expired.") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestUpdateMyPassword_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword", gin.H{
		"currentPassword": "wrongpass",
		"password":        "newpass123",
		"confirmPassword": "newpass123",
	}, map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "does not match the current password") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestUpdateMyPassword_RevokesOldToken(t *testing.T) {
	env := newTestEnv(t)
	_, oldToken := env.signUp(t)

	// La marca de cambio se redondea a segundos y se retrodata un segundo;
	// separar la emisión del cambio evita un falso negativo por granularidad.
	time.Sleep(2100 * time.Millisecond)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/updateMyPassword", gin.H{
		"currentPassword": "12345678",
		"password":        "newpass123",
		"confirmPassword": "newpass123",
	}, map[string]string{"Authorization": "Bearer " + oldToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// El token emitido antes del cambio debe morir en el chequeo de frescura,
	// aunque su propia expiración esté lejos.
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + oldToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale token must be rejected: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "recently changed password") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}

	// El token nuevo sigue siendo válido.
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + resp.Token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh token must pass: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateMe_RejectsPasswordFields(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/users/updateMe", gin.H{
		"name":     "B",
		"email":    "a@x.com",
		"password": "sneaky123",
	}, map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/updateMyPassword") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestDeleteMe_SoftDeleteNeutralizesToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/users/deleteMe", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// El token sigue siendo criptográficamente válido pero la identidad ya no
	// se resuelve: rechazo en el paso de existencia.
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated identity must be rejected: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "no longer exists") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}

func TestList_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.signUp(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "You do not have permission to perform this action!") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}

	stored := env.repo.usersByID[user.ID]
	stored.Role = domain.RoleAdmin
	env.repo.usersByID[user.ID] = stored

	rec = env.do(t, http.MethodGet, "/api/v1/users", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"results":1`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Can't find /api/v1/nope on this server!") {
		t.Fatalf("unexpected message: %s", rec.Body.String())
	}
}
