package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/rollbook/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Course is required"))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	if raw["success"] != false {
		t.Errorf("success = %v, want false", raw["success"])
	}
	if raw["message"] != "Course is required" {
		t.Errorf("message = %q, want %q", raw["message"], "Course is required")
	}
	if raw["code"] != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", raw["code"], model.ErrCodeValidationFailed)
	}
	if len(raw) != 3 {
		t.Errorf("body has %d fields, want 3: %v", len(raw), raw)
	}
}

// TestStatusForCode はエラーコードごとの既定ステータスを検証する。
func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeValidationFailed, http.StatusBadRequest},
		{model.ErrCodeDuplicateEmail, http.StatusBadRequest},
		{model.ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{model.ErrCodeUnauthenticated, http.StatusUnauthorized},
		{model.ErrCodeForbidden, http.StatusForbidden},
		{model.ErrCodeStudentNotFound, http.StatusNotFound},
		{model.ErrCodeAccountNotFound, http.StatusNotFound},
		{model.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StatusForCode(tt.code); got != tt.want {
				t.Errorf("StatusForCode(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーで一般的なメッセージのみ返すことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
	if body.Message != "Server error" {
		t.Errorf("message = %q, want %q", body.Message, "Server error")
	}
}
