// Package student は学生プロフィールの一覧・参照・作成・更新・削除を提供する。
// すべての操作はauthz.Decideによる判定を経由する。
package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rollbook/internal/authz"
	"github.com/hitoshi/rollbook/internal/model"
	"github.com/hitoshi/rollbook/internal/repository"
	"github.com/hitoshi/rollbook/internal/security"
	"github.com/hitoshi/rollbook/internal/validation"
)

const (
	// DefaultLimit は1ページあたりの既定件数。
	DefaultLimit = 10
	// MaxLimit は1ページあたりの上限件数。
	MaxLimit = 50
	// MaxPage はオフセット計算がオーバーフローしないページ番号の上限。
	MaxPage = math.MaxInt / MaxLimit
)

// AccountFinder はプロフィールの所有者となるアカウントを取得するインターフェース。
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
}

// Service はプロフィール管理のビジネスロジックを提供する。
type Service struct {
	students  repository.StudentRepository
	accounts  AccountFinder
	validator *validation.Validator
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(students repository.StudentRepository, accounts AccountFinder) *Service {
	return &Service{
		students:  students,
		accounts:  accounts,
		validator: validation.New(),
		sanitizer: security.NewTextSanitizer(),
		now:       time.Now,
	}
}

// Page はページネーション付きの一覧結果。
type Page struct {
	Students   []model.StudentWithOwner
	Pagination model.Pagination
}

// NormalizePage はページ番号と件数を補正する。
// 1未満のページは1、上限超過のページはMaxPage、1未満の件数は既定値、上限超過の件数はMaxLimitになる。
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// List はプロフィールの一覧を返す。
// 管理者は全件をページ単位で、学生は自身のプロフィールのみを受け取る。
func (s *Service) List(ctx context.Context, id *authz.Identity, page, limit int) (*Page, error) {
	if apiErr := authz.Decide(id, authz.ActionList, ""); apiErr != nil {
		return nil, apiErr
	}

	if authz.ListScope(id) == authz.ScopeOwn {
		own, err := s.students.FindByOwnerAccountID(ctx, id.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to find own profile: %w", err)
		}
		if own == nil {
			return nil, model.NewOwnProfileNotFoundError()
		}
		return &Page{
			Students:   []model.StudentWithOwner{*own},
			Pagination: model.Pagination{Total: 1, Page: 1, Pages: 1, Limit: 1},
		}, nil
	}

	page, limit = NormalizePage(page, limit)

	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	students, err := s.students.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []model.StudentWithOwner{}
	}

	return &Page{
		Students: students,
		Pagination: model.Pagination{
			Total: total,
			Page:  page,
			Pages: (total + limit - 1) / limit,
			Limit: limit,
		},
	}, nil
}

// Get は指定IDのプロフィールを返す。
// 存在しない場合はNotFound、所有者以外の学生にはForbiddenを返す。
func (s *Service) Get(ctx context.Context, id *authz.Identity, studentID string) (*model.StudentWithOwner, error) {
	if id == nil {
		return nil, model.NewUnauthenticatedError()
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	if apiErr := authz.Decide(id, authz.ActionRead, student.OwnerAccountID); apiErr != nil {
		return nil, apiErr
	}
	return student, nil
}

// CreateInput はプロフィール作成の入力。
type CreateInput struct {
	AccountID string `json:"accountId" validate:"required" message:"Account ID is required"`
	Name      string `json:"name" validate:"min=2,max=255" message:"Name must be at least 2 characters" message_max:"Name must be at most 255 characters"`
	Email     string `json:"email" validate:"required,email,max=255" message:"Invalid email address" message_max:"Email must be at most 255 characters"`
	Course    string `json:"course" validate:"required,max=255" message:"Course is required" message_max:"Course must be at most 255 characters"`
}

// Create は既存の学生アカウントに紐づくプロフィールを作成する。管理者のみ実行できる。
func (s *Service) Create(ctx context.Context, id *authz.Identity, in CreateInput) (*model.StudentWithOwner, error) {
	if apiErr := authz.Decide(id, authz.ActionCreate, ""); apiErr != nil {
		return nil, apiErr
	}

	in.Name = s.sanitizer.Clean(in.Name)
	in.Course = s.sanitizer.Clean(in.Course)
	in.Email = model.NormalizeEmail(in.Email)
	if apiErr := s.validator.Struct(&in); apiErr != nil {
		return nil, apiErr
	}

	existing, err := s.students.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find student by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateStudentEmailError()
	}

	owner, err := s.accounts.FindByID(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if owner == nil {
		return nil, model.NewAccountNotFoundError()
	}
	if owner.Role != model.RoleStudent {
		return nil, model.NewValidationError("Account is not a student account")
	}

	owned, err := s.students.FindByOwnerAccountID(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find own profile: %w", err)
	}
	if owned != nil {
		return nil, model.NewValidationError("Account already has a student profile")
	}

	profile := model.StudentProfile{
		ID:             uuid.New().String(),
		OwnerAccountID: owner.ID,
		Name:           in.Name,
		Email:          in.Email,
		Course:         in.Course,
		EnrollmentDate: s.now().UTC(),
	}
	if err := s.students.Create(ctx, &profile); err != nil {
		return nil, mapWriteError(err)
	}

	slog.Info("student profile created",
		slog.String("student_id", profile.ID),
		slog.String("owner_account_id", owner.ID),
		slog.String("created_by", id.AccountID),
	)

	return &model.StudentWithOwner{
		StudentProfile: profile,
		Owner:          model.AccountSummary{ID: owner.ID, Email: owner.Email, Role: owner.Role},
	}, nil
}

// UpdateInput はプロフィール更新の入力。
// 空文字列とnilはどちらも既存の値を維持する。
type UpdateInput struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=255" message:"Name must be at least 2 characters" message_max:"Name must be at most 255 characters"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email,max=255" message:"Invalid email address" message_max:"Email must be at most 255 characters"`
	Course *string `json:"course,omitempty" validate:"omitempty,max=255" message:"Course must be at most 255 characters"`
}

// Update はプロフィールを部分更新する。管理者または所有者のみ実行できる。
func (s *Service) Update(ctx context.Context, id *authz.Identity, studentID string, in UpdateInput) (*model.StudentWithOwner, error) {
	if id == nil {
		return nil, model.NewUnauthenticatedError()
	}

	patch := s.normalizePatch(in)
	if apiErr := s.validator.Struct(&UpdateInput{Name: patch.Name, Email: patch.Email, Course: patch.Course}); apiErr != nil {
		return nil, apiErr
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	if apiErr := authz.Decide(id, authz.ActionUpdate, student.OwnerAccountID); apiErr != nil {
		return nil, apiErr
	}

	if patch.Email != nil && *patch.Email != student.Email {
		other, err := s.students.FindByEmail(ctx, *patch.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find student by email: %w", err)
		}
		if other != nil && other.ID != student.ID {
			return nil, model.NewDuplicateStudentEmailError()
		}
	}

	updated := applyPatch(student.StudentProfile, patch)
	if err := s.students.Update(ctx, &updated); err != nil {
		return nil, mapWriteError(err)
	}

	return &model.StudentWithOwner{StudentProfile: updated, Owner: student.Owner}, nil
}

// Delete はプロフィールを削除する。管理者のみ実行できる。
// 削除済みのIDを再度指定した場合はNotFoundを返す。
func (s *Service) Delete(ctx context.Context, id *authz.Identity, studentID string) error {
	if apiErr := authz.Decide(id, authz.ActionDelete, ""); apiErr != nil {
		return apiErr
	}

	if err := s.students.Delete(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewStudentNotFoundError()
		}
		return fmt.Errorf("failed to delete student: %w", err)
	}

	slog.Info("student profile deleted",
		slog.String("student_id", studentID),
		slog.String("deleted_by", id.AccountID),
	)
	return nil
}

// normalizePatch は入力を正規化し、空になったフィールドをnilにする。
func (s *Service) normalizePatch(in UpdateInput) model.StudentPatch {
	var patch model.StudentPatch
	if in.Name != nil {
		if v := s.sanitizer.Clean(*in.Name); v != "" {
			patch.Name = &v
		}
	}
	if in.Email != nil {
		if v := model.NormalizeEmail(*in.Email); v != "" {
			patch.Email = &v
		}
	}
	if in.Course != nil {
		if v := s.sanitizer.Clean(*in.Course); v != "" {
			patch.Course = &v
		}
	}
	return patch
}

// applyPatch はnilでないフィールドのみを上書きしたコピーを返す。
func applyPatch(p model.StudentProfile, patch model.StudentPatch) model.StudentProfile {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Course != nil {
		p.Course = *patch.Course
	}
	return p
}

func mapWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateStudentEmail):
		return model.NewDuplicateStudentEmailError()
	case errors.Is(err, repository.ErrOwnerHasProfile):
		return model.NewValidationError("Account already has a student profile")
	case errors.Is(err, repository.ErrNotFound):
		return model.NewStudentNotFoundError()
	}
	return fmt.Errorf("failed to write student: %w", err)
}
