package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/rollbook/internal/auth"
	"github.com/hitoshi/rollbook/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn         func(ctx context.Context, in auth.SignupInput) (*auth.SignupResult, error)
	loginFn          func(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
	getCurrentUserFn func(ctx context.Context, token string) (*auth.CurrentUser, error)
	changePasswordFn func(ctx context.Context, token string, in auth.ChangePasswordInput) error
	logoutFn         func(ctx context.Context, token string) error
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*auth.SignupResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, token string) (*auth.CurrentUser, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, token)
	}
	return nil, model.NewUnauthenticatedError()
}

func (m *mockAuthService) ChangePassword(ctx context.Context, token string, in auth.ChangePasswordInput) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, token, in)
	}
	return nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)

// --- テストヘルパー ---

var testCreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["code"] != code {
		t.Errorf("code = %v, want %q", body["code"], code)
	}
	if message != "" && body["message"] != message {
		t.Errorf("message = %v, want %q", body["message"], message)
	}
}

// --- Signup ---

func TestAuthHandler_Signup_Student_Returns201WithProfile(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, in auth.SignupInput) (*auth.SignupResult, error) {
			if in.Name != "Ann" || in.Email != "a@x.com" || in.Password != "secret1" || in.Course != "UI/UX Design" {
				t.Errorf("input = %+v", in)
			}
			return &auth.SignupResult{
				Token:   "tok",
				Account: &model.Account{ID: "acc-1", Email: "a@x.com", Role: model.RoleStudent, CreatedAt: testCreatedAt},
				Name:    "Ann",
				Student: &model.StudentProfile{ID: "stu-1", OwnerAccountID: "acc-1", Name: "Ann", Email: "a@x.com", Course: "UI/UX Design", EnrollmentDate: testCreatedAt},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, map[string]string{
		"name": "Ann", "email": "a@x.com", "password": "secret1", "course": "UI/UX Design",
	}))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["token"] != "tok" {
		t.Errorf("body = %v", body)
	}
	user := body["user"].(map[string]interface{})
	if user["role"] != "student" || user["id"] != "acc-1" {
		t.Errorf("user = %v", user)
	}
	if _, ok := user["name"]; ok {
		t.Error("student signup should not echo name on user")
	}
	if _, ok := user["passwordHash"]; ok {
		t.Error("password hash must never be serialized")
	}
	student := body["student"].(map[string]interface{})
	if student["accountId"] != "acc-1" || student["course"] != "UI/UX Design" {
		t.Errorf("student = %v", student)
	}
}

func TestAuthHandler_Signup_Admin_EchoesNameWithoutProfile(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, in auth.SignupInput) (*auth.SignupResult, error) {
			return &auth.SignupResult{
				Token:   "tok",
				Account: &model.Account{ID: "acc-1", Email: "root@x.com", Role: model.RoleAdmin, CreatedAt: testCreatedAt},
				Name:    "Root",
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, map[string]string{
		"name": "Root", "email": "root@x.com", "password": "secret1", "course": "N/A", "role": "admin",
	}))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	body := decodeBody(t, w)
	user := body["user"].(map[string]interface{})
	if user["name"] != "Root" {
		t.Errorf("name = %v, want Root", user["name"])
	}
	if _, ok := body["student"]; ok {
		t.Error("admin signup should not include a student profile")
	}
}

func TestAuthHandler_Signup_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.NewValidationError("Name must be at least 2 characters"), http.StatusBadRequest, model.ErrCodeValidationFailed},
		{"duplicate", model.NewDuplicateAccountEmailError(), http.StatusBadRequest, model.ErrCodeDuplicateEmail},
		{"internal", errors.New("db down"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				signupFn: func(context.Context, auth.SignupInput) (*auth.SignupResult, error) {
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{}`))
			w := httptest.NewRecorder()

			h.Signup(w, req)

			assertErrorBody(t, w, tt.status, tt.code, "")
			if tt.code == model.ErrCodeInternal && strings.Contains(w.Body.String(), "db down") {
				t.Error("internal error details must not leak to the client")
			}
		})
	}
}

func TestAuthHandler_Signup_MalformedJSON_Returns400(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(context.Context, auth.SignupInput) (*auth.SignupResult, error) {
			t.Fatal("service must not be called for malformed body")
			return nil, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"name":`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	assertErrorBody(t, w, http.StatusBadRequest, model.ErrCodeValidationFailed, "Invalid request body")
}

// --- Login ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, in auth.LoginInput) (*auth.LoginResult, error) {
			return &auth.LoginResult{
				Token:   "tok",
				Account: &model.Account{ID: "acc-1", Email: in.Email, Role: model.RoleStudent, CreatedAt: testCreatedAt},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"email": "a@x.com", "password": "secret1",
	}))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["token"] != "tok" {
		t.Errorf("token = %v", body["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(context.Context, auth.LoginInput) (*auth.LoginResult, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"email": "a@x.com", "password": "nope",
	}))
	w := httptest.NewRecorder()

	h.Login(w, req)

	assertErrorBody(t, w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, "Invalid credentials")
}

// --- Me ---

func TestAuthHandler_Me_ReturnsUserWithStudent(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(_ context.Context, token string) (*auth.CurrentUser, error) {
			if token != "good" {
				t.Errorf("token = %q, want %q", token, "good")
			}
			return &auth.CurrentUser{
				Account: &model.Account{ID: "acc-1", Email: "a@x.com", Role: model.RoleStudent, CreatedAt: testCreatedAt},
				Student: &model.StudentProfile{ID: "stu-1", OwnerAccountID: "acc-1", Name: "Ann", EnrollmentDate: testCreatedAt},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	user := decodeBody(t, w)["user"].(map[string]interface{})
	student, ok := user["student"].(map[string]interface{})
	if !ok || student["id"] != "stu-1" {
		t.Errorf("user.student = %v", user["student"])
	}
}

func TestAuthHandler_Me_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid token", model.NewUnauthenticatedError(), http.StatusUnauthorized, model.ErrCodeUnauthenticated},
		{"deleted account", model.NewAccountNotFoundError(), http.StatusUnauthorized, model.ErrCodeAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				getCurrentUserFn: func(context.Context, string) (*auth.CurrentUser, error) {
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			w := httptest.NewRecorder()

			h.Me(w, req)

			assertErrorBody(t, w, tt.status, tt.code, "")
		})
	}
}

// --- ChangePassword ---

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	svc := &mockAuthService{
		changePasswordFn: func(_ context.Context, token string, in auth.ChangePasswordInput) error {
			if token != "good" || in.CurrentPassword != "secret1" || in.NewPassword != "secret2" {
				t.Errorf("token=%q input=%+v", token, in)
			}
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password", jsonBody(t, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	}))
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	h.ChangePassword(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Password changed successfully" {
		t.Errorf("message = %v", msg)
	}
}

func TestAuthHandler_ChangePassword_IncorrectCurrent_Returns400(t *testing.T) {
	svc := &mockAuthService{
		changePasswordFn: func(context.Context, string, auth.ChangePasswordInput) error {
			return model.NewIncorrectPasswordError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password", jsonBody(t, map[string]string{
		"currentPassword": "wrong", "newPassword": "secret2",
	}))
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	h.ChangePassword(w, req)

	assertErrorBody(t, w, http.StatusBadRequest, model.ErrCodeInvalidCredentials, "Current password is incorrect")
}

func TestAuthHandler_ChangePassword_NoToken_Returns401BeforeBodyParsing(t *testing.T) {
	svc := &mockAuthService{
		changePasswordFn: func(context.Context, string, auth.ChangePasswordInput) error {
			t.Fatal("service must not be called without a token")
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password", strings.NewReader(`not json`))
	w := httptest.NewRecorder()

	h.ChangePassword(w, req)

	assertErrorBody(t, w, http.StatusUnauthorized, model.ErrCodeUnauthenticated, "")
}

// --- Logout ---

func TestAuthHandler_Logout_AcknowledgesValidToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Logged out successfully" {
		t.Errorf("message = %v", msg)
	}
}

func TestAuthHandler_Logout_InvalidToken_Returns401(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(context.Context, string) error {
			return model.NewUnauthenticatedError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	assertErrorBody(t, w, http.StatusUnauthorized, model.ErrCodeUnauthenticated, "")
}
