// Package model はドメインモデルを定義する。
package model

import "time"

// Genre は映画ジャンル（TMDBのid+name）を表す。
type Genre struct {
	ID   int
	Name string
}

// Image は画像パスと抽出済みドミナントカラーの組を表す。
// Colorはパスが存在しない場合や未抽出の場合にnilとなる。
type Image struct {
	Path  string
	Color *string
}

// Movie はローカルにキャッシュされた映画レコードを表す。
// TMDBの外部IDごとに高々1件（tmdb_idにユニーク制約）。
// 初回参照時にリモートAPIから取得・作成され、以後は変更されない。
type Movie struct {
	ID               string
	TmdbID           int64
	ImdbID           string
	Title            string
	ReleaseDate      *time.Time
	OriginalLanguage string
	Plot             string
	Genres           []Genre
	Backdrop         Image
	Poster           Image
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RatingUnset は未評価を表す番兵値。
const RatingUnset = -1

// Interaction はユーザーと映画の関係（視聴/フォロー/評価）を表す。
// (user_id, movie_id) の組ごとに高々1件。
type Interaction struct {
	ID        string
	UserID    string
	MovieID   string
	Followed  bool
	Watched   bool
	Rating    int
	Movie     *Movie
	CreatedAt time.Time
	UpdatedAt time.Time
}
