package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mael/cinetrack/internal/model"
)

// ErrorBody はAPIエラーレスポンスの本体。
// 原因カテゴリと対処方法を含む。
type ErrorBody struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ErrorEnvelope はAPIエラーレスポンスの統一フォーマット。
// 本体をerrorキーで包む。
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// *model.APIError以外のエラーは詳細をログのみに記録し、500で一般的なメッセージを返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error", slog.String("error", err.Error()))
		apiErr = &model.APIError{
			Status:   http.StatusInternalServerError,
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: ErrorBody{
			Status:   apiErr.Status,
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Category: apiErr.Category,
			Action:   apiErr.Action,
		},
	})
}
