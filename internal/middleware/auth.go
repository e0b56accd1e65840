// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/rollbook/internal/authz"
	"github.com/hitoshi/rollbook/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var identityContextKey = contextKey("identity")

// IdentityResolver はベアラートークンから呼び出し元を解決するインターフェース。
// auth.Serviceが実装する。
type IdentityResolver interface {
	Identify(ctx context.Context, token string) (*authz.Identity, error)
}

// BearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// スキーム名は大文字小文字を区別しない。該当しない場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// NewAuthMiddleware はベアラートークンを検証し、呼び出し元をコンテキストに注入するミドルウェアを返す。
// トークンが欠落・不正、またはアカウントが存在しない場合は401を返す。
func NewAuthMiddleware(resolver IdentityResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			id, err := resolver.Identify(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
					return
				}
				slog.Error("failed to resolve identity",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			annotateAccount(r.Context(), id.AccountID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから呼び出し元を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*authz.Identity, error) {
	id, ok := ctx.Value(identityContextKey).(*authz.Identity)
	if !ok || id == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return id, nil
}

// ContextWithIdentity はコンテキストに呼び出し元を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, id *authz.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
