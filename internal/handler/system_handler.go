package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/rollbook/internal/model"
)

// HealthChecker はデータベースの疎通確認のインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Root はサーバーの稼働確認用の応答を返す。
// GET /
func Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is running!"})
}

// NewHealthHandler はデータベースの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "UNAVAILABLE"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}
}

type coursesResponse struct {
	Success bool     `json:"success"`
	Courses []string `json:"courses"`
}

// Courses は提供中のコース一覧を返す。
// GET /api/courses
func Courses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, coursesResponse{Success: true, Courses: model.Courses})
}
