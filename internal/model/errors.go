package model

import "fmt"

// APIError はAPI境界で返すドメインエラーを表す。
// Messageはそのまま呼び出し元に返されるため、内部情報を含めないこと。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeStudentNotFound    = "STUDENT_NOT_FOUND"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// 最初に検出した違反のみをメッセージとする。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: message,
	}
}

// NewDuplicateAccountEmailError はアカウントのメールアドレス重複エラーを生成する。
func NewDuplicateAccountEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateEmail,
		Message: "User already exists with this email",
	}
}

// NewDuplicateStudentEmailError はプロフィールのメールアドレス重複エラーを生成する。
func NewDuplicateStudentEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateEmail,
		Message: "Student with this email already exists",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// アカウント不在とパスワード不一致で同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// NewIncorrectPasswordError はパスワード変更時の現在パスワード不一致エラーを生成する。
func NewIncorrectPasswordError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Current password is incorrect",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
// トークンの欠落・不正・期限切れを区別しない。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: "Not authorized, token missing or invalid",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	if message == "" {
		message = "Access denied"
	}
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

// NewStudentNotFoundError はプロフィール未検出エラーを生成する。
func NewStudentNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeStudentNotFound,
		Message: "Student not found",
	}
}

// NewOwnProfileNotFoundError は自身のプロフィールが存在しない場合のエラーを生成する。
func NewOwnProfileNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeStudentNotFound,
		Message: "Student profile not found",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeAccountNotFound,
		Message: "User not found",
	}
}
