package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rollbook/internal/authz"
	"github.com/hitoshi/rollbook/internal/middleware"
	"github.com/hitoshi/rollbook/internal/model"
	"github.com/hitoshi/rollbook/internal/student"
)

// StudentServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type StudentServiceInterface interface {
	List(ctx context.Context, id *authz.Identity, page, limit int) (*student.Page, error)
	Get(ctx context.Context, id *authz.Identity, studentID string) (*model.StudentWithOwner, error)
	Create(ctx context.Context, id *authz.Identity, in student.CreateInput) (*model.StudentWithOwner, error)
	Update(ctx context.Context, id *authz.Identity, studentID string, in student.UpdateInput) (*model.StudentWithOwner, error)
	Delete(ctx context.Context, id *authz.Identity, studentID string) error
}

// StudentHandler はプロフィール管理のHTTPハンドラー。
// すべてのルートは認証ミドルウェアの内側に配置する。
type StudentHandler struct {
	service StudentServiceInterface
}

// NewStudentHandler はStudentHandlerを生成する。
func NewStudentHandler(service StudentServiceInterface) *StudentHandler {
	return &StudentHandler{service: service}
}

type studentListResponse struct {
	Success    bool               `json:"success"`
	Students   []*studentResponse `json:"students"`
	Pagination model.Pagination   `json:"pagination"`
}

type studentSingleResponse struct {
	Success bool             `json:"success"`
	Student *studentResponse `json:"student"`
}

// List はプロフィール一覧を返す。
// GET /api/students?page=&limit=
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	res, err := h.service.List(r.Context(), id, page, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	students := make([]*studentResponse, 0, len(res.Students))
	for i := range res.Students {
		students = append(students, toStudentWithOwnerResponse(&res.Students[i]))
	}
	writeJSON(w, http.StatusOK, studentListResponse{
		Success:    true,
		Students:   students,
		Pagination: res.Pagination,
	})
}

// Get はプロフィールを1件返す。
// GET /api/students/{id}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	s, err := h.service.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, studentSingleResponse{Success: true, Student: toStudentWithOwnerResponse(s)})
}

// Create はプロフィールを作成する。
// POST /api/students
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req student.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.service.Create(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, studentSingleResponse{Success: true, Student: toStudentWithOwnerResponse(s)})
}

// Update はプロフィールを部分更新する。
// PUT /api/students/{id}
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req student.UpdateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.service.Update(r.Context(), id, chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, studentSingleResponse{Success: true, Student: toStudentWithOwnerResponse(s)})
}

// Delete はプロフィールを削除する。
// DELETE /api/students/{id}
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Student deleted successfully"})
}

func identityOrUnauthorized(w http.ResponseWriter, r *http.Request) (*authz.Identity, bool) {
	id, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return nil, false
	}
	return id, true
}

// queryInt はクエリパラメータを整数として読む。欠落・不正な値は0を返す。
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
