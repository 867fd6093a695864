package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mael/cinetrack/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn func(ctx context.Context, username, password, firstName, lastName, email string, birthDate time.Time) (string, error)
	loginFn    func(ctx context.Context, username, password string) (string, error)
	logoutFn   func(ctx context.Context, token string) error
}

func (m *mockAuthService) Register(ctx context.Context, username, password, firstName, lastName, email string, birthDate time.Time) (string, error) {
	return m.registerFn(ctx, username, password, firstName, lastName, email, birthDate)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	return m.logoutFn(ctx, token)
}

// decodeErrorCode はレスポンスから統一エラーフォーマットのコードを取り出す。
func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("エラーレスポンスの解析に失敗: %v", err)
	}
	return envelope.Error.Code
}

func TestAuthHandler_Register(t *testing.T) {
	var gotUsername, gotEmail string
	var gotBirthDate time.Time

	h := NewAuthHandler(&mockAuthService{
		registerFn: func(_ context.Context, username, password, firstName, lastName, email string, birthDate time.Time) (string, error) {
			gotUsername = username
			gotEmail = email
			gotBirthDate = birthDate
			return "issued-token", nil
		},
	})

	body := `{"username":"mael","password":"secret","firstName":"Maël","lastName":"Durand","birthDate":"1990-05-15","email":"mael@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if !resp.Success || resp.Token != "issued-token" {
		t.Errorf("レスポンス: got %+v", resp)
	}

	if gotUsername != "mael" || gotEmail != "mael@example.com" {
		t.Errorf("サービスへの引数: username=%q email=%q", gotUsername, gotEmail)
	}
	if gotBirthDate.Format("2006-01-02") != "1990-05-15" {
		t.Errorf("birthDate: got %v", gotBirthDate)
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/1/register", strings.NewReader("{invalid"))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if code := decodeErrorCode(t, rec); code != "VALIDATION_FAILED" {
		t.Errorf("エラーコード: got %q", code)
	}
}

func TestAuthHandler_Register_InvalidBirthDate(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(_ context.Context, _, _, _, _, _ string, _ time.Time) (string, error) {
			t.Fatal("不正なbirthDateでサービスが呼ばれた")
			return "", nil
		},
	})

	body := `{"username":"mael","password":"secret","birthDate":"15/05/1990"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Register_DuplicateUser(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(_ context.Context, _, _, _, _, _ string, _ time.Time) (string, error) {
			return "", model.NewUserExistsError("mael")
		},
	})

	body := `{"username":"mael","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if code := decodeErrorCode(t, rec); code != "USER_ALREADY_EXISTS" {
		t.Errorf("エラーコード: got %q", code)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(_ context.Context, username, password string) (string, error) {
			if username != "mael" || password != "secret" {
				t.Errorf("資格情報: username=%q password=%q", username, password)
			}
			return "login-token", nil
		},
	})

	body := `{"username":"mael","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusOK)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Token != "login-token" {
		t.Errorf("トークン: got %q", resp.Token)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (string, error) {
			return "", model.NewWrongPasswordError()
		},
	})

	body := `{"username":"mael","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusForbidden)
	}
	if code := decodeErrorCode(t, rec); code != "WRONG_PASSWORD" {
		t.Errorf("エラーコード: got %q", code)
	}
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (string, error) {
			return "", model.NewUserNotFoundError("ghost")
		},
	})

	body := `{"username":"ghost","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var revokedToken string
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(_ context.Context, token string) error {
			revokedToken = token
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/1/user/logout", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusOK)
	}
	if revokedToken != "session-token" {
		t.Errorf("失効したトークン: got %q", revokedToken)
	}
}

func TestAuthHandler_Logout_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(_ context.Context, _ string) error {
			t.Fatal("トークンなしでサービスが呼ばれた")
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/1/user/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("ステータスコード: got %d, want %d", rec.Code, http.StatusForbidden)
	}
	if code := decodeErrorCode(t, rec); code != "UNAUTHORIZED" {
		t.Errorf("エラーコード: got %q", code)
	}
}
