// Package password はパスワードの一方向ハッシュ化と検証を提供する。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrCorruptDigest は保存済みダイジェストの形式が不正であることを示す。
var ErrCorruptDigest = errors.New("password: corrupt digest")

// DefaultCost はbcryptのデフォルトのワークファクター。
const DefaultCost = 10

// MaxBytes はbcryptが受け付けるパスワードの最大バイト長。
// 入力検証はこの値をmaxbytesルールで強制する。
const MaxBytes = 72

// Hasher はbcryptによるパスワードハッシュ化を行う。
// 呼び出しごとにランダムなソルトを生成するため、同一入力でも異なるダイジェストを返す。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。
// costはbcryptの許容範囲に丸められる。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードのダイジェストを返す。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがダイジェストに一致するかを返す。
// 不一致はエラーではなくfalseを返す。ダイジェストが不正な場合のみErrCorruptDigestを返す。
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	// 上限を超える平文で作られたダイジェストは存在しない
	if len(plaintext) > MaxBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrCorruptDigest, err)
	}
}
