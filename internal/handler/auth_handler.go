// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mael/cinetrack/internal/middleware"
	"github.com/mael/cinetrack/internal/model"
)

// birthDateLayout は登録リクエストの生年月日フォーマット。
const birthDateLayout = "2006-01-02"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し、発行したトークンを返す。
	Register(ctx context.Context, username, password, firstName, lastName, email string, birthDate time.Time) (string, error)
	// Login は資格情報を検証し、発行したトークンを返す。
	Login(ctx context.Context, username, password string) (string, error)
	// Logout はトークンを失効させる。
	Logout(ctx context.Context, token string) error
}

// AuthHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
	Email     string `json:"email"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse はトークン発行系エンドポイントのレスポンス。
type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// successResponse は処理成功のみを返すレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

// Register はユーザー登録を処理する。
// POST /api/1/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	// ここでは形式のみ検証する。必須チェックはサービス側で行う
	var birthDate time.Time
	if req.BirthDate != "" {
		parsed, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError("birthDateはYYYY-MM-DD形式で指定してください"))
			return
		}
		birthDate = parsed
	}

	token, err := h.service.Register(r.Context(), req.Username, req.Password, req.FirstName, req.LastName, req.Email, birthDate)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Success: true, Token: token})
}

// Login はログインを処理する。
// POST /api/1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token})
}

// Logout は現在のトークンを失効させる。
// POST /api/1/user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
