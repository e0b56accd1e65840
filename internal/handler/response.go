package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/rollbook/internal/middleware"
	"github.com/hitoshi/rollbook/internal/model"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// statusOverride は特定のエラーコードに対するHTTPステータスの上書き。
type statusOverride struct {
	code   string
	status int
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗した場合はValidationFailedのレスポンスを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// overridesで指定したエラーコードは既定のステータスより優先する。
func handleServiceError(w http.ResponseWriter, err error, overrides ...statusOverride) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := middleware.StatusForCode(apiErr.Code)
		for _, o := range overrides {
			if o.code == apiErr.Code {
				statusCode = o.status
			}
		}
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// --- レスポンスビュー ---

// accountResponse はアカウント情報のAPIレスポンス。パスワードハッシュは含まない。
type accountResponse struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	CreatedAt time.Time        `json:"createdAt"`
	Name      string           `json:"name,omitempty"`
	Student   *studentResponse `json:"student,omitempty"`
}

// ownerResponse はプロフィールに部分結合されるオーナー情報。
type ownerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// studentResponse はプロフィール情報のAPIレスポンス。
type studentResponse struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"accountId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Course         string         `json:"course"`
	EnrollmentDate time.Time      `json:"enrollmentDate"`
	Account        *ownerResponse `json:"account,omitempty"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
	}
}

func toStudentResponse(p *model.StudentProfile) *studentResponse {
	return &studentResponse{
		ID:             p.ID,
		AccountID:      p.OwnerAccountID,
		Name:           p.Name,
		Email:          p.Email,
		Course:         p.Course,
		EnrollmentDate: p.EnrollmentDate,
	}
}

func toStudentWithOwnerResponse(s *model.StudentWithOwner) *studentResponse {
	resp := toStudentResponse(&s.StudentProfile)
	resp.Account = &ownerResponse{
		ID:    s.Owner.ID,
		Email: s.Owner.Email,
		Role:  string(s.Owner.Role),
	}
	return resp
}
