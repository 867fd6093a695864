// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// HTTPステータスとUIに表示する原因カテゴリ、対処方法を含む。
type APIError struct {
	Status   int    // HTTPステータスコード
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeTokenRevoked      = "TOKEN_REVOKED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeWrongPassword     = "WRONG_PASSWORD"
	ErrCodeUserExists        = "USER_ALREADY_EXISTS"
	ErrCodeMovieFetchFailed  = "MOVIE_FETCH_FAILED"
	ErrCodeMovieNotFound     = "MOVIE_NOT_FOUND"
	ErrCodeInvalidRating     = "INVALID_RATING"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
	ErrCodeSamePassword      = "SAME_PASSWORD"
	ErrCodeInvalidAuthToken  = "INVALID_AUTH_TOKEN"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Status:   400,
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", detail),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// 元システムに合わせ、資格情報の欠落・無効・失効はいずれも403で応答する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Status:   403,
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "有効なトークンを指定してログインし直してください。",
	}
}

// NewTokenRevokedError は失効済みトークンエラーを生成する。
func NewTokenRevokedError() *APIError {
	return &APIError{
		Status:   403,
		Code:     ErrCodeTokenRevoked,
		Message:  "このトークンはログアウトにより失効しています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Status:   404,
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", username),
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewWrongPasswordError はパスワード不一致エラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Status:   403,
		Code:     ErrCodeWrongPassword,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認してください。",
	}
}

// NewUserExistsError はユーザー重複エラーを生成する。
func NewUserExistsError(username string) *APIError {
	return &APIError{
		Status:   400,
		Code:     ErrCodeUserExists,
		Message:  fmt.Sprintf("このユーザー名またはメールアドレスは既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名・メールアドレスを指定してください。",
	}
}

// NewMovieFetchFailedError はリモートカタログ取得失敗エラーを生成する。
func NewMovieFetchFailedError(tmdbID int64) *APIError {
	return &APIError{
		Status:   500,
		Code:     ErrCodeMovieFetchFailed,
		Message:  fmt.Sprintf("映画データの取得に失敗しました: tmdb_id=%d", tmdbID),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMovieNotFoundError は映画未検出エラーを生成する。
func NewMovieNotFoundError(tmdbID int64) *APIError {
	return &APIError{
		Status:   404,
		Code:     ErrCodeMovieNotFound,
		Message:  fmt.Sprintf("指定された映画が見つかりません: tmdb_id=%d", tmdbID),
		Category: "catalog",
		Action:   "TMDBのIDを確認してください。",
	}
}

// NewInvalidRatingError は評価値の範囲外エラーを生成する。
func NewInvalidRatingError(rating, max int) *APIError {
	return &APIError{
		Status:   400,
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("評価値が範囲外です: %d（許容範囲: -1〜%d）", rating, max),
		Category: "validation",
		Action:   fmt.Sprintf("評価は-1（未評価）または0〜%dで指定してください。", max),
	}
}

// NewStorageError はデータベース障害エラーを生成する。
func NewStorageError() *APIError {
	return &APIError{
		Status:   503,
		Code:     ErrCodeStorageFailure,
		Message:  "データベースへのアクセスに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSamePasswordError は新旧パスワード同一エラーを生成する。
func NewSamePasswordError() *APIError {
	return &APIError{
		Status:   400,
		Code:     ErrCodeSamePassword,
		Message:  "新しいパスワードは現在のパスワードと異なる必要があります。",
		Category: "validation",
		Action:   "別のパスワードを指定してください。",
	}
}

// NewInvalidAuthTokenError はジャンル更新用トークンの不一致エラーを生成する。
func NewInvalidAuthTokenError() *APIError {
	return &APIError{
		Status:   401,
		Code:     ErrCodeInvalidAuthToken,
		Message:  "更新用トークンが正しくありません。",
		Category: "auth",
		Action:   "正しい更新用トークンを指定してください。",
	}
}
