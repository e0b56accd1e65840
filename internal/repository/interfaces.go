// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/rollbook/internal/model"
)

var (
	// ErrDuplicateAccountEmail はaccounts.emailのユニーク制約違反を示す。
	ErrDuplicateAccountEmail = errors.New("repository: duplicate account email")
	// ErrDuplicateStudentEmail はstudent_profiles.emailのユニーク制約違反を示す。
	ErrDuplicateStudentEmail = errors.New("repository: duplicate student email")
	// ErrOwnerHasProfile はアカウントが既にプロフィールを所有していることを示す。
	ErrOwnerHasProfile = errors.New("repository: account already owns a profile")
	// ErrNotFound は更新・削除対象のレコードが存在しないことを示す。
	ErrNotFound = errors.New("repository: not found")
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// CreateWithStudent はアカウントと（studentがnilでなければ）プロフィールを同一トランザクションで作成する。
	CreateWithStudent(ctx context.Context, account *model.Account, student *model.StudentProfile) error

	// UpdatePasswordHash はアカウントのパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// StudentRepository はプロフィールデータの永続化インターフェース。
// 取得系はオーナーアカウントの要約（email, role）を部分結合して返す。
type StudentRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.StudentWithOwner, error)

	// FindByOwnerAccountID はオーナーアカウントIDでプロフィールを取得する。見つからない場合はnilを返す。
	FindByOwnerAccountID(ctx context.Context, accountID string) (*model.StudentWithOwner, error)

	// FindByEmail はメールアドレスでプロフィールを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.StudentProfile, error)

	// Count はプロフィールの総数を返す。
	Count(ctx context.Context) (int, error)

	// List はenrollment_date降順でプロフィールを取得する。
	List(ctx context.Context, offset, limit int) ([]model.StudentWithOwner, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, student *model.StudentProfile) error

	// Update はname、email、courseを更新する。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, student *model.StudentProfile) error

	// Delete は指定IDのプロフィールを削除する。対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}
