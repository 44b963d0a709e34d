// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService はレビューコメントをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// レビューコメントはプレーンテキストのみを想定するため、
// bluemondayのStrictPolicyで全てのHTMLタグと属性を除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizerService はレビューコメントのサニタイズ機能のインターフェースを定義する。
// レビュー投稿・編集時の保存前に使用される。
type CommentSanitizerService interface {
	// Sanitize はコメントから全てのHTMLタグと属性を除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(comment string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可リストが空のポリシーであり、script・iframe・style等の
// 危険なタグだけでなく、p・a・img等を含む全てのタグを除去する。
func NewCommentSanitizer() *commentSanitizer {
	return &commentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はコメントをプレーンテキストにサニタイズして返す。
func (s *commentSanitizer) Sanitize(comment string) string {
	return strings.TrimSpace(s.policy.Sanitize(comment))
}
