// Package token は署名付きの期限付きベアラートークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid はトークンが検証に失敗したことを示す。
// 署名不一致・形式不正・期限切れを区別しない。
var ErrTokenInvalid = errors.New("token: invalid")

// Claims はトークンに埋め込むクレーム。
// アカウントIDはSubjectに格納する。
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer はHS256で署名されたJWTを発行・検証する。
// 署名鍵は起動時に注入され、以後変更されない。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はアカウントIDを束縛したトークンを発行する。
func (i *Issuer) Issue(accountID string) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、束縛されたアカウントIDを返す。
// いかなる失敗もErrTokenInvalidに集約する。
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
