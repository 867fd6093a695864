package handler

import (
	"context"
	"net/http"

	"github.com/mael/cinetrack/internal/middleware"
)

// GenreServiceInterface はジャンルハンドラーが必要とするサービスインターフェース。
type GenreServiceInterface interface {
	// AuthorizeRefresh は更新用トークンを検証する。
	AuthorizeRefresh(token string) error
	// Refresh はリモートカタログからジャンル一覧を取得し、更新件数を返す。
	Refresh(ctx context.Context) (int, error)
}

// GenreHandler はジャンルカタログ更新のHTTPハンドラー。
type GenreHandler struct {
	service GenreServiceInterface
}

// NewGenreHandler はGenreHandlerを生成する。
func NewGenreHandler(service GenreServiceInterface) *GenreHandler {
	return &GenreHandler{service: service}
}

// genreRefreshResponse はジャンル更新のレスポンス。
type genreRefreshResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// UpdateGenres はジャンルカタログをリモートカタログと同期する。
// Bearer認証の対象外で、authクエリパラメータの更新用トークンで保護する。
// GET /api/1/genres/update?auth=
func (h *GenreHandler) UpdateGenres(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AuthorizeRefresh(r.URL.Query().Get("auth")); err != nil {
		middleware.WriteError(w, err)
		return
	}

	count, err := h.service.Refresh(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, genreRefreshResponse{Success: true, Count: count})
}
