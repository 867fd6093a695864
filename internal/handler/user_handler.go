package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mael/cinetrack/internal/middleware"
	"github.com/mael/cinetrack/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile はプロフィール（メールアドレス・パスワード）を部分更新する。
	UpdateProfile(ctx context.Context, userID string, email, password *string) error
	// ChangePassword は現在のパスワードを照合してから新しいパスワードに変更する。
	ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error
	// RecordActivity はユーザーの行動ログを追記する。
	RecordActivity(ctx context.Context, userID, action string, tmdbID int64, occurredAt time.Time) error
}

// UserHandler はプロフィール管理と行動ログのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilのフィールドは更新しない。
type updateProfileRequest struct {
	Email       *string `json:"email"`
	NewPassword *string `json:"newPassword"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// scienceRequest は行動ログ記録リクエストのボディ。
// クライアントはイベントをevent配下にネストして送る。
type scienceRequest struct {
	Event scienceEvent `json:"event"`
}

type scienceEvent struct {
	TmdbID    int64  `json:"tmdbId"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	BirthDate      string    `json:"birthDate"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile は認証済みユーザー自身のプロフィールを返す。
// GET /api/1/user
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile はプロフィールを部分更新する。
// PUT /api/1/user
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), user.ID, req.Email, req.NewPassword); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ChangePassword はパスワードを変更する。
// POST /api/1/user/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Science はユーザーの行動ログを記録する。
// POST /api/1/science
func (h *UserHandler) Science(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	var req scienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	// タイムスタンプはクライアント申告。省略時はサービス側で現在時刻を補う。
	var occurredAt time.Time
	if req.Event.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Event.Timestamp)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError("timestampの形式が不正です"))
			return
		}
		occurredAt = parsed
	}

	if err := h.service.RecordActivity(r.Context(), user.ID, req.Event.Action, req.Event.TmdbID, occurredAt); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	birthDate := ""
	if !user.BirthDate.IsZero() {
		birthDate = user.BirthDate.Format(birthDateLayout)
	}

	return userResponse{
		ID:             user.ID,
		Username:       user.Username,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		BirthDate:      birthDate,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
	}
}
