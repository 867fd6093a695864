// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを保持し、平文パスワードは決して保存しない。
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	FirstName      string
	LastName       string
	BirthDate      time.Time
	Email          string
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Activity はユーザーの行動ログ1件を表す。
// 追記専用で、レコメンド選択の入力（最終行動）として参照される。
type Activity struct {
	ID         string
	UserID     string
	Action     string
	TmdbID     int64
	OccurredAt time.Time
	CreatedAt  time.Time
}

// RevokedToken はログアウトによって失効済みとなったトークンを表す。
// 認証ミドルウェアが毎リクエスト照会し、ExpiresAt経過後はクリーンアップジョブが削除する。
type RevokedToken struct {
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
