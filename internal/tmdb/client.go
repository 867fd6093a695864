// Package tmdb はTMDB（The Movie Database）カタログAPIとの連携機能を提供する。
// 映画メタデータの取得、検索、ディスカバー、レコメンド候補の取得を含む。
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// APIHost はTMDB APIのホスト名。アウトバウンド接続の許可リストに使用する。
	APIHost = "api.themoviedb.org"
	// ImageHost はTMDB画像配信のホスト名。
	ImageHost = "image.tmdb.org"

	// defaultBaseURL はTMDB API v3のベースURL。
	defaultBaseURL = "https://" + APIHost + "/3"
	// ImageBaseURL はTMDB画像配信のベースURL。サイズ指定（w92, w300等）を付けて使用する。
	ImageBaseURL = "https://" + ImageHost + "/t/p"
)

// StatusError はTMDB APIの非200応答を表す。
type StatusError struct {
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB APIがステータス %d を返しました", e.StatusCode)
}

// IsNotFound はエラーがTMDB APIの404応答かどうかを返す。
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// Genre はTMDBのジャンル（id+name）を表す。
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetail は /movie/{id} が返す映画の詳細メタデータ。
type MovieDetail struct {
	ID               int64   `json:"id"`
	ImdbID           string  `json:"imdb_id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"` // "2006-01-02" 形式。空の場合あり
	OriginalLanguage string  `json:"original_language"`
	Genres           []Genre `json:"genres"`
	BackdropPath     string  `json:"backdrop_path"`
	PosterPath       string  `json:"poster_path"`
}

// MovieResult は検索・ディスカバー・レコメンドの一覧APIが返す映画1件。
type MovieResult struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Overview     string `json:"overview"`
	BackdropPath string `json:"backdrop_path"`
	PosterPath   string `json:"poster_path"`
	GenreIDs     []int  `json:"genre_ids"`
}

// listResponse は一覧系APIの共通レスポンス形式。
type listResponse struct {
	Results []MovieResult `json:"results"`
}

// DiscoverParams はディスカバー検索の絞り込み条件。
// ゼロ値のフィールドはクエリに含めない。
type DiscoverParams struct {
	Genres   []int  // with_genres
	Year     int    // primary_release_year
	Language string // with_original_language
}

// Client はTMDB APIのクライアント。
// 言語・リージョンのクエリパラメータとAPIキーを全リクエストに付与する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	language   string
	region     string
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// Config はClientの生成に必要な設定。
type Config struct {
	APIKey   string
	Language string
	Region   string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡すことを想定している。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		region:     cfg.Region,
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL はAPIエンドポイントを差し替える。テスト専用。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// ImageURL はTMDB画像の完全URLを組み立てる。pathが空の場合は空文字列を返す。
func ImageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + "/" + size + "/" + strings.TrimPrefix(path, "/")
}

// GetMovie は映画の詳細メタデータを取得する。
func (c *Client) GetMovie(ctx context.Context, tmdbID int64) (*MovieDetail, error) {
	var detail MovieDetail
	path := fmt.Sprintf("/movie/%d", tmdbID)
	if err := c.get(ctx, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SearchMovies はタイトルと公開年で映画を検索する。
// 結果はAPIが返す適合度順を維持する。
func (c *Client) SearchMovies(ctx context.Context, query string, year int) ([]MovieResult, error) {
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}

	var resp listResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// DiscoverMovies はジャンル・公開年・原語で映画を探す。
func (c *Client) DiscoverMovies(ctx context.Context, p DiscoverParams) ([]MovieResult, error) {
	params := url.Values{}
	if len(p.Genres) > 0 {
		ids := make([]string, len(p.Genres))
		for i, id := range p.Genres {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	if p.Year > 0 {
		params.Set("primary_release_year", strconv.Itoa(p.Year))
	}
	if p.Language != "" {
		params.Set("with_original_language", p.Language)
	}

	var resp listResponse
	if err := c.get(ctx, "/discover/movie", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetRecommendations は指定映画に類似した映画の一覧を取得する。
func (c *Client) GetRecommendations(ctx context.Context, tmdbID int64) ([]MovieResult, error) {
	var resp listResponse
	path := fmt.Sprintf("/movie/%d/recommendations", tmdbID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetTrending は人気度降順のディスカバー結果を取得する。
// 行動ログのないユーザーへのレコメンドのフォールバックとして使用する。
func (c *Client) GetTrending(ctx context.Context) ([]MovieResult, error) {
	params := url.Values{}
	params.Set("sort_by", "popularity.desc")

	var resp listResponse
	if err := c.get(ctx, "/discover/movie", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListGenres はジャンルカタログの全一覧を取得する。
func (c *Client) ListGenres(ctx context.Context) ([]Genre, error) {
	var resp struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// get は共通のGETリクエスト処理。APIキー・言語・リージョンを付与し、JSONをデコードする。
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.region != "" {
		params.Set("region", c.region)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("TMDB APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("TMDB APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("TMDB APIのレスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}
