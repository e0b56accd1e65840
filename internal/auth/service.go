// Package auth はサインアップ、ログイン、パスワード変更とトークンによる本人確認を提供する。
//
// サーバー側にセッション状態は持たない。発行済みトークンは有効期限まで有効であり、
// ログアウトやパスワード変更によって失効しない。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rollbook/internal/authz"
	"github.com/hitoshi/rollbook/internal/metrics"
	"github.com/hitoshi/rollbook/internal/model"
	"github.com/hitoshi/rollbook/internal/repository"
	"github.com/hitoshi/rollbook/internal/security"
	"github.com/hitoshi/rollbook/internal/validation"
)

// PasswordHasher はパスワードのハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// TokenIssuer はベアラートークンの発行と検証のインターフェース。
type TokenIssuer interface {
	Issue(accountID string) (string, error)
	Verify(token string) (string, error)
}

// StudentFinder はオーナーからプロフィールを取得するインターフェース。
// repository.StudentRepositoryの部分集合として定義する。
type StudentFinder interface {
	FindByOwnerAccountID(ctx context.Context, accountID string) (*model.StudentWithOwner, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accountRepo repository.AccountRepository
	students    StudentFinder
	hasher      PasswordHasher
	tokens      TokenIssuer
	validator   *validation.Validator
	sanitizer   security.TextSanitizer
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	accountRepo repository.AccountRepository,
	students StudentFinder,
	hasher PasswordHasher,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		accountRepo: accountRepo,
		students:    students,
		hasher:      hasher,
		tokens:      tokens,
		validator:   validation.New(),
		sanitizer:   security.NewTextSanitizer(),
		metrics:     collector,
		now:         time.Now,
	}
}

// SignupInput はサインアップの入力。
type SignupInput struct {
	Name     string `json:"name" validate:"min=2,max=255" message:"Name must be at least 2 characters" message_max:"Name must be at most 255 characters"`
	Email    string `json:"email" validate:"required,email,max=255" message:"Invalid email address" message_max:"Email must be at most 255 characters"`
	Password string `json:"password" validate:"min=6,maxbytes=72" message:"Password must be at least 6 characters" message_maxbytes:"Password must be at most 72 bytes"`
	Course   string `json:"course" validate:"required,max=255" message:"Course is required" message_max:"Course must be at most 255 characters"`
	Role     string `json:"role,omitempty"`
}

// SignupResult はサインアップの結果。
// Studentは実効ロールがstudentの場合のみ設定される。
type SignupResult struct {
	Token   string
	Account *model.Account
	Name    string
	Student *model.StudentProfile
}

// Signup はアカウントを作成し、学生であればプロフィールも同時に作成してトークンを発行する。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Name = s.sanitizer.Clean(in.Name)
	in.Course = s.sanitizer.Clean(in.Course)
	in.Email = model.NormalizeEmail(in.Email)
	if apiErr := s.validator.Struct(&in); apiErr != nil {
		return nil, apiErr
	}

	existing, err := s.accountRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeRejected)
		return nil, model.NewDuplicateAccountEmailError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		return nil, err
	}

	now := s.now().UTC()
	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.ParseRole(in.Role),
		CreatedAt:    now,
	}

	var student *model.StudentProfile
	if account.Role == model.RoleStudent {
		student = &model.StudentProfile{
			ID:             uuid.New().String(),
			OwnerAccountID: account.ID,
			Name:           in.Name,
			Email:          in.Email,
			Course:         in.Course,
			EnrollmentDate: now,
		}
	}

	// アカウントとプロフィールは同一トランザクションで作成する
	if err := s.accountRepo.CreateWithStudent(ctx, account, student); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateAccountEmail):
			s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeRejected)
			return nil, model.NewDuplicateAccountEmailError()
		case errors.Is(err, repository.ErrDuplicateStudentEmail):
			s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeRejected)
			return nil, model.NewDuplicateStudentEmailError()
		}
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeSuccess)
	slog.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return &SignupResult{
		Token:   token,
		Account: account,
		Name:    in.Name,
		Student: student,
	}, nil
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string `json:"email" validate:"required,email" message:"Invalid email address"`
	Password string `json:"password" validate:"required" message:"Password is required"`
}

// LoginResult はログインの結果。
type LoginResult struct {
	Token   string
	Account *model.Account
}

// Login はメールアドレスとパスワードを検証してトークンを発行する。
// アカウント不在とパスワード不一致は同一のエラーを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if apiErr := s.validator.Struct(&in); apiErr != nil {
		return nil, apiErr
	}

	account, err := s.accountRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeRejected)
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to verify password for account %s: %w", account.ID, err)
	}
	if !ok {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeRejected)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeSuccess)
	return &LoginResult{Token: token, Account: account}, nil
}

// CurrentUser はトークンから解決した現在のアカウント。
// 学生アカウントでプロフィールが存在する場合はStudentが設定される。
type CurrentUser struct {
	Account *model.Account
	Student *model.StudentProfile
}

// GetCurrentUser はトークンから現在のアカウントとプロフィールを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, token string) (*CurrentUser, error) {
	account, err := s.resolveAccount(ctx, token)
	if err != nil {
		return nil, err
	}

	current := &CurrentUser{Account: account}
	if account.Role == model.RoleStudent {
		student, err := s.students.FindByOwnerAccountID(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find student profile: %w", err)
		}
		if student != nil {
			current.Student = &student.StudentProfile
		}
	}
	return current, nil
}

// ChangePasswordInput はパスワード変更の入力。
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required" message:"Current password is required"`
	NewPassword     string `json:"newPassword" validate:"min=6,maxbytes=72" message:"New password must be at least 6 characters" message_maxbytes:"New password must be at most 72 bytes"`
}

// ChangePassword は現在のパスワードを検証し、新しいパスワードに置き換える。
// 発行済みのトークンは失効しない。
func (s *Service) ChangePassword(ctx context.Context, token string, in ChangePasswordInput) error {
	account, err := s.resolveAccount(ctx, token)
	if err != nil {
		return err
	}
	if apiErr := s.validator.Struct(&in); apiErr != nil {
		return apiErr
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, account.PasswordHash)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventChangePassword, metrics.OutcomeError)
		return fmt.Errorf("failed to verify password for account %s: %w", account.ID, err)
	}
	if !ok {
		s.metrics.RecordAuthEvent(metrics.EventChangePassword, metrics.OutcomeRejected)
		return model.NewIncorrectPasswordError()
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventChangePassword, metrics.OutcomeError)
		return err
	}
	if err := s.accountRepo.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewAccountNotFoundError()
		}
		s.metrics.RecordAuthEvent(metrics.EventChangePassword, metrics.OutcomeError)
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventChangePassword, metrics.OutcomeSuccess)
	slog.Info("password changed", slog.String("account_id", account.ID))
	return nil
}

// Logout はトークンを検証して応答するのみで、サーバー側の状態は変更しない。
// トークンの破棄はクライアントの責務。
func (s *Service) Logout(_ context.Context, token string) error {
	accountID, err := s.tokens.Verify(token)
	if err != nil {
		return model.NewUnauthenticatedError()
	}
	slog.Info("account logged out", slog.String("account_id", accountID))
	return nil
}

// Identify はトークンを検証し、アクセス制御に用いる呼び出し元を返す。
// アカウントが存在しない場合は未認証として扱う。
func (s *Service) Identify(ctx context.Context, token string) (*authz.Identity, error) {
	account, err := s.resolveAccount(ctx, token)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, model.NewUnauthenticatedError()
		}
		return nil, err
	}
	return &authz.Identity{AccountID: account.ID, Role: account.Role}, nil
}

// resolveAccount はトークンを検証し、束縛されたアカウントを読み込む。
func (s *Service) resolveAccount(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, model.NewUnauthenticatedError()
	}
	accountID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, model.NewUnauthenticatedError()
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}
