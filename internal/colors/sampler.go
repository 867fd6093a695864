// Package colors は画像からのドミナントカラー抽出機能を提供する。
// 映画のポスター・バックドロップ画像をダウンロードし、パレットから
// 最も彩度の高い色（または暗色優先の変種）を16進表記で返す。
package colors

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"net/http"
	"sort"

	// 対応フォーマットのデコーダ登録
	_ "image/jpeg"
	_ "image/png"

	"github.com/EdlinOrg/prominentcolor"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// saturationBoost は選択色に加える固定の彩度増分（Hcl色空間のクロマ値）。
// 抽出されたドミナントカラーはくすみがちなため、UI背景向けに彩度を底上げする。
const saturationBoost = 1.8

// darkThreshold はHSP輝度による明暗判定のしきい値。
const darkThreshold = 127.5

// SamplerService はドミナントカラー抽出機能のインターフェースを定義する。
type SamplerService interface {
	// SampleColor は画像をダウンロードし、パレット中で最も彩度の高い色を
	// 彩度を底上げした16進表記（#rrggbb）で返す。
	SampleColor(ctx context.Context, imageURL string) (string, error)

	// SampleDarkColor は画像をダウンロードし、パレット中で最初に見つかる
	// 暗い色を16進表記で返す。暗い色がない場合は先頭の色を返す。
	// テキスト可読性を優先する背景色向けの変種。
	SampleDarkColor(ctx context.Context, imageURL string) (string, error)
}

// Sampler はSamplerServiceの実装。
// K-meansクラスタリングでパレットを抽出する。
type Sampler struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSampler はSamplerの新しいインスタンスを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡すことを想定している。
func NewSampler(httpClient *http.Client, logger *slog.Logger) *Sampler {
	return &Sampler{
		httpClient: httpClient,
		logger:     logger,
	}
}

// SampleColor は画像中で最も彩度の高い色を抽出して返す。
// ネットワークエラー・デコードエラーはそのまま伝播する（リトライなし）。
func (s *Sampler) SampleColor(ctx context.Context, imageURL string) (string, error) {
	palette, err := s.extractPalette(ctx, imageURL)
	if err != nil {
		return "", err
	}

	// 彩度（HSVのS）降順に並べ、先頭を採用する
	sort.SliceStable(palette, func(i, j int) bool {
		_, si, _ := palette[i].Hsv()
		_, sj, _ := palette[j].Hsv()
		return si > sj
	})

	return boostSaturation(palette[0]).Hex(), nil
}

// SampleDarkColor はパレット中で最初に見つかる暗い色を返す。
// パレットはクラスタサイズ降順のため、支配的な色から順に判定する。
func (s *Sampler) SampleDarkColor(ctx context.Context, imageURL string) (string, error) {
	palette, err := s.extractPalette(ctx, imageURL)
	if err != nil {
		return "", err
	}

	for _, c := range palette {
		if IsDark(c.Hex()) {
			return c.Hex(), nil
		}
	}
	return palette[0].Hex(), nil
}

// extractPalette は画像をダウンロードしてK-meansでパレットを抽出する。
func (s *Sampler) extractPalette(ctx context.Context, imageURL string) ([]colorful.Color, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("画像のダウンロードに失敗しました",
			slog.String("url", imageURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("画像サーバーがステータス %d を返しました", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		s.logger.Error("画像のデコードに失敗しました",
			slog.String("url", imageURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("画像のデコードに失敗しました: %w", err)
	}

	// 背景マスクは使わない。デフォルトの白・黒・緑マスクだと、
	// 暗色や単色が支配的なポスター・バックドロップで全ピクセルが
	// 除外されて抽出自体が失敗する。
	items, err := prominentcolor.KmeansWithAll(
		prominentcolor.DefaultK, img, prominentcolor.ArgumentDefault,
		prominentcolor.DefaultSize, []prominentcolor.ColorBackgroundMask{},
	)
	if err != nil {
		return nil, fmt.Errorf("パレットの抽出に失敗しました: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("パレットが空です: %s", imageURL)
	}

	palette := make([]colorful.Color, len(items))
	for i, item := range items {
		palette[i] = colorful.Color{
			R: float64(item.Color.R) / 255.0,
			G: float64(item.Color.G) / 255.0,
			B: float64(item.Color.B) / 255.0,
		}
	}
	return palette, nil
}

// boostSaturation は色のクロマを固定量だけ増やし、sRGB範囲にクランプして返す。
func boostSaturation(c colorful.Color) colorful.Color {
	h, chroma, l := c.Hcl()
	return colorful.Hcl(h, chroma+saturationBoost, l).Clamped()
}

// IsDark はHSP輝度（sqrt(0.299r² + 0.587g² + 0.114b²)）による明暗判定を行う。
// 不正な16進表記はfalseを返す。
func IsDark(hex string) bool {
	c, err := colorful.Hex(hex)
	if err != nil {
		return false
	}

	r := c.R * 255
	g := c.G * 255
	b := c.B * 255
	hsp := math.Sqrt(0.299*r*r + 0.587*g*g + 0.114*b*b)
	return hsp <= darkThreshold
}

// compile-time interface check
var _ SamplerService = (*Sampler)(nil)
