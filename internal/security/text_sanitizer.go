// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力した自由記述（薬の名前、用量、服用方法、承認メモ）から
// HTMLタグを取り除く。bluemondayの StrictPolicy を使い、テキストのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能を定義する。
type TextSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いた文字列を返す。
	Sanitize(s string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去する。
// StrictPolicy はエスケープ済みの文字列を返すため、保存用に実体参照を戻す。
// JSONで返す値なので、HTMLとしての出力時のエスケープは表示側が行う。
func (s *textSanitizer) Sanitize(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// SanitizeOptional は nil を保ったままサニタイズする。結果が空になった場合は nil を返す。
func SanitizeOptional(s TextSanitizer, in *string) *string {
	if in == nil {
		return nil
	}
	out := s.Sanitize(*in)
	if out == "" {
		return nil
	}
	return &out
}
