// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はプロフィールの自由記述フィールド（name, course）から
// HTMLマークアップを除去し、保存された値が表示側でマークアップとして
// 解釈されないようにする。bluemondayのStrictPolicyを使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Clean は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// タグ以外の文字（&や'など）はエスケープせず元の文字のまま残す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(s string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean は全てのHTMLタグを除去したテキストを返す。
func (s *textSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは出力をHTMLエスケープするため、プレーンテキストに戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
