package model

import (
	"strings"
	"time"
)

// StudentProfile は学生アカウントが所有するプロフィールを表す。
// 1アカウントにつき最大1件。
type StudentProfile struct {
	ID             string
	OwnerAccountID string
	Name           string
	Email          string
	Course         string
	EnrollmentDate time.Time
}

// AccountSummary はプロフィールに部分結合されるオーナーアカウントの情報。
// パスワードハッシュは含まない。
type AccountSummary struct {
	ID    string
	Email string
	Role  Role
}

// StudentWithOwner はプロフィールとオーナーアカウントの要約を結合した構造体。
type StudentWithOwner struct {
	StudentProfile
	Owner AccountSummary
}

// StudentPatch はプロフィールの部分更新内容を表す。
// nilのフィールドは既存の値を維持する。
type StudentPatch struct {
	Name   *string
	Email  *string
	Course *string
}

// Pagination はページネーション情報を表す。
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// NormalizeEmail はメールアドレスを前後の空白除去と小文字化で正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Courses は提供中のコース一覧。
// サーバー側では閉じた集合として強制しない。
var Courses = []string{
	"MERN Stack Development",
	"Full Stack Web Development",
	"Frontend Development",
	"Backend Development",
	"Data Science & Analytics",
	"Machine Learning",
	"DevOps Engineering",
	"Mobile App Development",
	"UI/UX Design",
	"Python Programming",
}
