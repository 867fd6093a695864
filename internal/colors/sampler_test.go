package colors

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

// testImageServer は生成したPNG画像を返すテストサーバーを起動する。
func testImageServer(t *testing.T, img image.Image) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)
	return server
}

// twoToneImage は鮮やかな赤とグレーの2色からなるテスト画像を生成する。
func twoToneImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			if x < 60 {
				img.Set(x, y, color.RGBA{R: 230, G: 20, B: 20, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
			}
		}
	}
	return img
}

// darkImage はほぼ黒一色のテスト画像を生成する。
func darkImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: 15, G: 15, B: 25, A: 255})
		}
	}
	return img
}

// SampleColorが彩度最優先の色を16進表記で返すことを検証
func TestSampleColor_PicksMostSaturated(t *testing.T) {
	server := testImageServer(t, twoToneImage())
	s := NewSampler(server.Client(), newTestLogger())

	hex, err := s.SampleColor(context.Background(), server.URL+"/poster.png")
	if err != nil {
		t.Fatalf("SampleColor returned error: %v", err)
	}

	if len(hex) != 7 || hex[0] != '#' {
		t.Fatalf("expected #rrggbb format, got %q", hex)
	}

	// 彩度の高い赤系クラスタが選ばれること（グレーより赤が支配的）
	c, err := colorful.Hex(hex)
	if err != nil {
		t.Fatalf("invalid hex color %q: %v", hex, err)
	}
	if c.R <= c.G || c.R <= c.B {
		t.Errorf("expected red-dominant color, got %s", hex)
	}
}

// SampleDarkColorが暗い色を優先して返すことを検証
func TestSampleDarkColor_PrefersDark(t *testing.T) {
	server := testImageServer(t, darkImage())
	s := NewSampler(server.Client(), newTestLogger())

	hex, err := s.SampleDarkColor(context.Background(), server.URL+"/backdrop.png")
	if err != nil {
		t.Fatalf("SampleDarkColor returned error: %v", err)
	}

	if !IsDark(hex) {
		t.Errorf("expected a dark color, got %s", hex)
	}
}

// 白一色の画像でもパレット抽出が成功することを検証。
// 背景マスクを使うと白・黒が支配的な画像で全ピクセルが除外され、抽出自体が失敗する。
func TestSampleColor_UniformWhiteImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}

	server := testImageServer(t, img)
	s := NewSampler(server.Client(), newTestLogger())

	hex, err := s.SampleColor(context.Background(), server.URL+"/poster.png")
	if err != nil {
		t.Fatalf("SampleColor returned error: %v", err)
	}
	if len(hex) != 7 || hex[0] != '#' {
		t.Errorf("expected #rrggbb format, got %q", hex)
	}
}

// 非200応答がエラーになることを検証
func TestSampleColor_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	s := NewSampler(server.Client(), newTestLogger())
	_, err := s.SampleColor(context.Background(), server.URL+"/missing.png")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

// 画像でないボディがデコードエラーになることを検証
func TestSampleColor_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an image"))
	}))
	t.Cleanup(server.Close)

	s := NewSampler(server.Client(), newTestLogger())
	_, err := s.SampleColor(context.Background(), server.URL+"/broken.png")
	if err == nil {
		t.Fatal("expected decode error")
	}
}

// IsDarkのHSP輝度判定を検証
func TestIsDark(t *testing.T) {
	tests := []struct {
		hex  string
		want bool
	}{
		{"#000000", true},
		{"#ffffff", false},
		{"#ff0000", false}, // HSP ≈ 139 > 127.5
		{"#00007f", true},  // HSP ≈ 43
		{"#202020", true},
		{"not-a-color", false},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			if got := IsDark(tt.hex); got != tt.want {
				t.Errorf("IsDark(%s) = %v, want %v", tt.hex, got, tt.want)
			}
		})
	}
}

// boostSaturationが結果をsRGB範囲に収めることを検証
func TestBoostSaturation_Clamped(t *testing.T) {
	c := colorful.Color{R: 0.8, G: 0.1, B: 0.1}
	boosted := boostSaturation(c)

	if !boosted.IsValid() {
		t.Errorf("boosted color out of sRGB range: %+v", boosted)
	}

	_, s0, _ := c.Hsv()
	_, s1, _ := boosted.Hsv()
	if s1 < s0 {
		t.Errorf("saturation decreased: %f -> %f", s0, s1)
	}
}
