// Package model はドメインモデルを定義する。
package model

import "time"

// Role はアカウントのロールを表す。
// ロールはサインアップ時に確定し、以後変更されない。
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ParseRole は文字列をRoleに変換する。
// admin/student以外（空文字列を含む）はstudentとして扱う。
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Account は認証情報を保持するアカウントを表す。
// PasswordHashはJSONにシリアライズされない。
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin はアカウントが管理者かどうかを返す。
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
