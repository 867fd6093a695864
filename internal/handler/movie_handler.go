package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mael/cinetrack/internal/middleware"
	"github.com/mael/cinetrack/internal/model"
)

// InteractionServiceInterface は映画ハンドラーが必要とするインタラクション操作。
type InteractionServiceInterface interface {
	// FindOrCreate は映画を解決し、ユーザーとのインタラクションを取得または作成する。
	FindOrCreate(ctx context.Context, userID string, tmdbID int64) (*model.Interaction, error)
	// Update はインタラクションのwatched/followed/ratingを部分更新する。
	Update(ctx context.Context, userID string, tmdbID int64, watched, followed *bool, rating *int) (*model.Interaction, error)
	// Search はタイトル検索の結果をインタラクション付きで返す。
	Search(ctx context.Context, userID, query string, year int) ([]*model.Interaction, error)
	// Discover は条件検索の結果をインタラクション付きで返す。
	Discover(ctx context.Context, userID string, genres []int, year int, language string) ([]*model.Interaction, error)
}

// RecommendServiceInterface は映画ハンドラーが必要とするレコメンド操作。
type RecommendServiceInterface interface {
	// Recommend はユーザーの最終行動に基づくおすすめ映画を返す。
	Recommend(ctx context.Context, userID string, limit int) ([]*model.Interaction, error)
	// Popular はトレンド映画をダークカラー付きで返す。
	Popular(ctx context.Context, max int) ([]popularMovieResponse, error)
}

// MovieHandler は映画参照・評価・検索・レコメンドのHTTPハンドラー。
type MovieHandler struct {
	interactions InteractionServiceInterface
	recommender  RecommendServiceInterface
}

// NewMovieHandler はMovieHandlerを生成する。
func NewMovieHandler(interactions InteractionServiceInterface, recommender RecommendServiceInterface) *MovieHandler {
	return &MovieHandler{
		interactions: interactions,
		recommender:  recommender,
	}
}

// updateMovieRequest はインタラクション更新リクエストのボディ。
// nilのフィールドは更新しない。
type updateMovieRequest struct {
	Watched  *bool `json:"watched"`
	Followed *bool `json:"followed"`
	Rating   *int  `json:"rating"`
}

// imageResponse は画像パスと抽出済みドミナントカラーのレスポンス。
type imageResponse struct {
	Path  string  `json:"path"`
	Color *string `json:"color"`
}

// genreEntry はジャンル1件のレスポンス。
type genreEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// movieResponse はキャッシュ済み映画のAPIレスポンス。
type movieResponse struct {
	ID               string        `json:"id"`
	TmdbID           int64         `json:"tmdbId"`
	ImdbID           string        `json:"imdbId"`
	Title            string        `json:"title"`
	ReleaseDate      *string       `json:"releaseDate"`
	OriginalLanguage string        `json:"originalLanguage"`
	Plot             string        `json:"plot"`
	Genres           []genreEntry  `json:"genres"`
	Backdrop         imageResponse `json:"backdrop"`
	Poster           imageResponse `json:"poster"`
}

// interactionResponse はユーザーと映画のインタラクションのAPIレスポンス。
type interactionResponse struct {
	ID        string         `json:"id"`
	Movie     *movieResponse `json:"movie"`
	Followed  bool           `json:"followed"`
	Watched   bool           `json:"watched"`
	Rating    int            `json:"rating"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// popularMovieResponse は人気映画一覧のAPIレスポンス。
type popularMovieResponse struct {
	TmdbID   int64         `json:"tmdbId"`
	Title    string        `json:"title"`
	Overview string        `json:"overview"`
	Backdrop imageResponse `json:"backdrop"`
	Genres   []string      `json:"genres"`
}

// GetMovie は映画の詳細とユーザーのインタラクションを返す。
// 未キャッシュの映画は初回参照時にリモートカタログから取得・保存される。
// GET /api/1/movies/:id
func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	tmdbID, err := parseTmdbID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	interaction, err := h.interactions.FindOrCreate(r.Context(), user.ID, tmdbID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInteractionResponse(interaction))
}

// UpdateMovie はインタラクション（視聴・フォロー・評価）を部分更新する。
// POST /api/1/movies/:id/update
func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	tmdbID, err := parseTmdbID(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var req updateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	interaction, err := h.interactions.Update(r.Context(), user.ID, tmdbID, req.Watched, req.Followed, req.Rating)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInteractionResponse(interaction))
}

// Recommendations はユーザーの最終行動に基づくおすすめ映画一覧を返す。
// GET /api/1/movies/recommendations?limit=
func (h *MovieHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	limit, err := parseOptionalInt(r, "limit")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	interactions, err := h.recommender.Recommend(r.Context(), user.ID, limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInteractionResponses(interactions))
}

// Search は映画タイトル検索の結果を返す。
// GET /api/1/movies/search?q=&year=
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		middleware.WriteError(w, model.NewValidationError("qが空です"))
		return
	}

	year, err := parseOptionalInt(r, "year")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	interactions, err := h.interactions.Search(r.Context(), user.ID, query, year)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInteractionResponses(interactions))
}

// Discover はジャンル・公開年・言語による条件検索の結果を返す。
// GET /api/1/movies/discover?genres=&year=&lang=
func (h *MovieHandler) Discover(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	genres, err := parseGenreIDs(r.URL.Query().Get("genres"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	year, err := parseOptionalInt(r, "year")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	language := strings.TrimSpace(r.URL.Query().Get("lang"))

	interactions, err := h.interactions.Discover(r.Context(), user.ID, genres, year, language)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInteractionResponses(interactions))
}

// Popular はトレンド映画をダークカラー付きで返す。
// GET /api/1/discover/popular?max=
func (h *MovieHandler) Popular(w http.ResponseWriter, r *http.Request) {
	max, err := parseOptionalInt(r, "max")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	movies, err := h.recommender.Popular(r.Context(), max)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if movies == nil {
		movies = []popularMovieResponse{}
	}
	writeJSON(w, http.StatusOK, movies)
}

// --- ヘルパー関数 ---

// parseTmdbID はURLパラメータ:idをTMDB IDとして解析する。
func parseTmdbID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	tmdbID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tmdbID <= 0 {
		return 0, model.NewValidationError("映画IDは正の整数で指定してください")
	}
	return tmdbID, nil
}

// parseOptionalInt は省略可能な整数クエリパラメータを解析する。省略時は0を返す。
func parseOptionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(name + "は整数で指定してください")
	}
	return value, nil
}

// parseGenreIDs はカンマ区切りのジャンルIDリストを解析する。
func parseGenreIDs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, model.NewValidationError("genresはカンマ区切りの整数で指定してください")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// toMovieResponse はmodel.MovieからAPIレスポンスに変換する。
func toMovieResponse(movie *model.Movie) *movieResponse {
	if movie == nil {
		return nil
	}

	var releaseDate *string
	if movie.ReleaseDate != nil {
		formatted := movie.ReleaseDate.Format(birthDateLayout)
		releaseDate = &formatted
	}

	genres := make([]genreEntry, len(movie.Genres))
	for i, g := range movie.Genres {
		genres[i] = genreEntry{ID: g.ID, Name: g.Name}
	}

	return &movieResponse{
		ID:               movie.ID,
		TmdbID:           movie.TmdbID,
		ImdbID:           movie.ImdbID,
		Title:            movie.Title,
		ReleaseDate:      releaseDate,
		OriginalLanguage: movie.OriginalLanguage,
		Plot:             movie.Plot,
		Genres:           genres,
		Backdrop:         imageResponse{Path: movie.Backdrop.Path, Color: movie.Backdrop.Color},
		Poster:           imageResponse{Path: movie.Poster.Path, Color: movie.Poster.Color},
	}
}

// toInteractionResponse はmodel.InteractionからAPIレスポンスに変換する。
func toInteractionResponse(interaction *model.Interaction) interactionResponse {
	return interactionResponse{
		ID:        interaction.ID,
		Movie:     toMovieResponse(interaction.Movie),
		Followed:  interaction.Followed,
		Watched:   interaction.Watched,
		Rating:    interaction.Rating,
		UpdatedAt: interaction.UpdatedAt,
	}
}

// toInteractionResponses はインタラクションのスライスをAPIレスポンスに変換する。
func toInteractionResponses(interactions []*model.Interaction) []interactionResponse {
	results := make([]interactionResponse, len(interactions))
	for i, interaction := range interactions {
		results[i] = toInteractionResponse(interaction)
	}
	return results
}
