// Package authz はロールと所有関係に基づくアクセス制御の判定を提供する。
// 判定は副作用を持たない純粋関数として実装する。
package authz

import "github.com/hitoshi/rollbook/internal/model"

// Identity は検証済みトークンから解決された呼び出し元を表す。
type Identity struct {
	AccountID string
	Role      model.Role
}

// IsAdmin は呼び出し元が管理者かどうかを返す。
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// Action はプロフィールに対する操作の種別。
type Action string

const (
	ActionList   Action = "student:list"
	ActionRead   Action = "student:read"
	ActionCreate Action = "student:create"
	ActionUpdate Action = "student:update"
	ActionDelete Action = "student:delete"
)

// Scope は一覧取得の可視範囲を表す。
type Scope int

const (
	// ScopeAll は全プロフィールを参照できる。
	ScopeAll Scope = iota
	// ScopeOwn は自身が所有するプロフィールのみを参照できる。
	ScopeOwn
)

// Decide は操作の可否を判定する。許可される場合はnilを返す。
//
// 判定順序:
//  1. 未認証 → Unauthenticated
//  2. 作成・削除は管理者のみ → Forbidden
//  3. 単一プロフィールの参照・更新は管理者またはオーナーのみ → Forbidden
//  4. 一覧は常に許可（範囲はListScopeで決まる）
func Decide(id *Identity, action Action, resourceOwnerID string) *model.APIError {
	if id == nil || id.AccountID == "" {
		return model.NewUnauthenticatedError()
	}

	switch action {
	case ActionCreate, ActionDelete:
		if !id.IsAdmin() {
			return model.NewForbiddenError("Access denied. Admin privileges required")
		}
		return nil
	case ActionRead:
		if id.IsAdmin() || id.AccountID == resourceOwnerID {
			return nil
		}
		return model.NewForbiddenError("Access denied")
	case ActionUpdate:
		if id.IsAdmin() || id.AccountID == resourceOwnerID {
			return nil
		}
		return model.NewForbiddenError("Access denied. You can only update your own profile")
	case ActionList:
		return nil
	default:
		return model.NewForbiddenError("")
	}
}

// ListScope は一覧取得で参照できる範囲を返す。
// 学生は403ではなく自身のプロフィールのみの一覧を受け取る。
func ListScope(id *Identity) Scope {
	if id.IsAdmin() {
		return ScopeAll
	}
	return ScopeOwn
}
