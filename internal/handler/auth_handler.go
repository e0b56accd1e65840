// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/rollbook/internal/auth"
	"github.com/hitoshi/rollbook/internal/middleware"
	"github.com/hitoshi/rollbook/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.SignupResult, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
	GetCurrentUser(ctx context.Context, token string) (*auth.CurrentUser, error)
	ChangePassword(ctx context.Context, token string, in auth.ChangePasswordInput) error
	Logout(ctx context.Context, token string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type authResponse struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    accountResponse  `json:"user"`
	Student *studentResponse `json:"student,omitempty"`
}

type userResponse struct {
	Success bool            `json:"success"`
	User    accountResponse `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Signup はアカウントを登録し、トークンを発行する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user := toAccountResponse(res.Account)
	if res.Account.IsAdmin() {
		user.Name = res.Name
	}
	resp := authResponse{Success: true, Token: res.Token, User: user}
	if res.Student != nil {
		resp.Student = toStudentResponse(res.Student)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   res.Token,
		User:    toAccountResponse(res.Account),
	})
}

// Me は現在のアカウント情報を返す。学生の場合はプロフィールを含む。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cur, err := h.service.GetCurrentUser(r.Context(), middleware.BearerToken(r))
	if err != nil {
		// トークンが有効でもアカウントが削除済みなら未認証として扱う
		handleServiceError(w, err, statusOverride{model.ErrCodeAccountNotFound, http.StatusUnauthorized})
		return
	}

	user := toAccountResponse(cur.Account)
	if cur.Student != nil {
		user.Student = toStudentResponse(cur.Student)
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// ChangePassword は現在のパスワードを検証して新しいパスワードに変更する。
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req auth.ChangePasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), token, req); err != nil {
		handleServiceError(w, err,
			statusOverride{model.ErrCodeInvalidCredentials, http.StatusBadRequest},
			statusOverride{model.ErrCodeAccountNotFound, http.StatusUnauthorized},
		)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}

// Logout はトークンを検証して応答する。サーバー側の状態は変更しない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}
