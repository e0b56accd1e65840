package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/rollbook/internal/model"
)

// PostgresStudentRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresStudentRepo struct {
	db *sql.DB
}

// NewPostgresStudentRepo はPostgresStudentRepoを生成する。
func NewPostgresStudentRepo(db *sql.DB) *PostgresStudentRepo {
	return &PostgresStudentRepo{db: db}
}

// selectStudentWithOwnerSQL はオーナーのemail、roleのみを部分結合する。
const selectStudentWithOwnerSQL = `
	SELECT s.id, s.owner_account_id, s.name, s.email, s.course, s.enrollment_date,
	       a.id, a.email, a.role
	FROM student_profiles s
	JOIN accounts a ON a.id = s.owner_account_id`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// execer は*sql.DBと*sql.Txの共通インターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByID(ctx context.Context, id string) (*model.StudentWithOwner, error) {
	if !isValidID(id) {
		return nil, nil
	}
	s, err := scanStudentWithOwner(r.db.QueryRowContext(ctx, selectStudentWithOwnerSQL+` WHERE s.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by ID: %w", err)
	}
	return s, nil
}

// FindByOwnerAccountID はオーナーアカウントIDでプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByOwnerAccountID(ctx context.Context, accountID string) (*model.StudentWithOwner, error) {
	if !isValidID(accountID) {
		return nil, nil
	}
	s, err := scanStudentWithOwner(r.db.QueryRowContext(ctx, selectStudentWithOwnerSQL+` WHERE s.owner_account_id = $1`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by owner: %w", err)
	}
	return s, nil
}

// FindByEmail はメールアドレスでプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByEmail(ctx context.Context, email string) (*model.StudentProfile, error) {
	s := &model.StudentProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_account_id, name, email, course, enrollment_date
		 FROM student_profiles WHERE email = $1`,
		email,
	).Scan(&s.ID, &s.OwnerAccountID, &s.Name, &s.Email, &s.Course, &s.EnrollmentDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by email: %w", err)
	}
	return s, nil
}

// Count はプロフィールの総数を返す。
func (r *PostgresStudentRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM student_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

// List はenrollment_date降順でプロフィールを取得する。
// 同一日時の並びを安定させるためidを第2キーとする。
func (r *PostgresStudentRepo) List(ctx context.Context, offset, limit int) ([]model.StudentWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		selectStudentWithOwnerSQL+`
		ORDER BY s.enrollment_date DESC, s.id
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := make([]model.StudentWithOwner, 0, limit)
	for rows.Next() {
		s, err := scanStudentWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

// Create はプロフィールを作成する。
func (r *PostgresStudentRepo) Create(ctx context.Context, student *model.StudentProfile) error {
	return insertStudent(ctx, r.db, student)
}

// Update はname、email、courseを更新する。enrollment_dateとオーナーは変更しない。
func (r *PostgresStudentRepo) Update(ctx context.Context, student *model.StudentProfile) error {
	if !isValidID(student.ID) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE student_profiles SET name = $2, email = $3, course = $4 WHERE id = $1`,
		student.ID, student.Name, student.Email, student.Course,
	)
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	return checkAffected(result)
}

// Delete は指定IDのプロフィールを削除する。
func (r *PostgresStudentRepo) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM student_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return checkAffected(result)
}

// insertStudent はプロフィールを挿入する。サインアップ時はトランザクション内で呼ばれる。
func insertStudent(ctx context.Context, ex execer, student *model.StudentProfile) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO student_profiles (id, owner_account_id, name, email, course, enrollment_date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		student.ID, student.OwnerAccountID, student.Name, student.Email, student.Course, student.EnrollmentDate,
	)
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

func scanStudentWithOwner(row rowScanner) (*model.StudentWithOwner, error) {
	s := &model.StudentWithOwner{}
	var role string
	err := row.Scan(
		&s.ID, &s.OwnerAccountID, &s.Name, &s.Email, &s.Course, &s.EnrollmentDate,
		&s.Owner.ID, &s.Owner.Email, &role,
	)
	if err != nil {
		return nil, err
	}
	s.Owner.Role = model.Role(role)
	return s, nil
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ StudentRepository = (*PostgresStudentRepo)(nil)
