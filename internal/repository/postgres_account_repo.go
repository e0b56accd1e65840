package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/rollbook/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const selectAccountSQL = `SELECT id, email, password_hash, role, created_at FROM accounts`

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if !isValidID(id) {
		return nil, nil
	}
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccountSQL+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccountSQL+` WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return account, nil
}

// CreateWithStudent はアカウントとプロフィールを同一トランザクションで作成する。
// studentがnilの場合はアカウントのみを作成する。
func (r *PostgresAccountRepo) CreateWithStudent(ctx context.Context, account *model.Account, student *model.StudentProfile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Email, account.PasswordHash, string(account.Role), account.CreatedAt,
	)
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	if student != nil {
		if err := insertStudent(ctx, tx, student); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdatePasswordHash はアカウントのパスワードハッシュを更新する。
func (r *PostgresAccountRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if !isValidID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2 WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanAccount は1行をAccountにスキャンする。行が存在しない場合はnilを返す。
func scanAccount(row *sql.Row) (*model.Account, error) {
	account := &model.Account{}
	var role string
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &role, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	account.Role = model.Role(role)
	return account, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
