// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はリモートカタログAPIから取得したあらすじ等の
// テキストをサニタイズし、埋め込みマークアップ経由のXSSからユーザーを保護する。
// bluemondayのStrictPolicyにより全てのタグ・属性を除去し、プレーンテキストのみを残す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はリモート由来テキストのサニタイズ機能のインターフェースを定義する。
// 映画のあらすじ・タイトル等の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はテキストから全てのHTMLタグ・属性を除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// カタログAPIのテキストフィールドは本来プレーンテキストだが、
// 外部入力として信頼しないため、StrictPolicyで全マークアップを除去する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストから全てのHTMLタグ・属性を除去して返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
