package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// 制約名とリポジトリエラーの対応。
var constraintErrors = map[string]error{
	"accounts_email_key":                    ErrDuplicateAccountEmail,
	"student_profiles_email_key":            ErrDuplicateStudentEmail,
	"student_profiles_owner_account_id_key": ErrOwnerHasProfile,
}

// translateError はユニーク制約違反を対応するリポジトリエラーに変換する。
// 該当しない場合はnilを返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	if mapped, ok := constraintErrors[pqErr.Constraint]; ok {
		return mapped
	}
	return nil
}

// isValidID はIDがハイフン区切り36文字の正準UUID形式かどうかを返す。
// UUID以外の値をクエリに渡すと型変換エラーになるため、事前に弾いて未検出として扱う。
// uuid.Validateはurn:uuid:や波括弧付きの形式も受け付けるため、長さも確認する。
func isValidID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
