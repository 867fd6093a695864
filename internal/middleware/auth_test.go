package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mael/cinetrack/internal/model"
)

// mockAuthenticator はAuthenticatorインターフェースのモック。
type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return nil, model.NewUnauthorizedError()
}

func decodeErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateFn: func(_ context.Context, token string) (*model.User, error) {
			if token != "valid-token" {
				t.Errorf("unexpected token: %q", token)
			}
			return &model.User{ID: "u1", Username: "alice"}, nil
		},
	}

	mw := NewAuthMiddleware(authenticator)

	var captured *model.User
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured == nil || captured.ID != "u1" {
		t.Errorf("expected user u1 in context, got %+v", captured)
	}
}

func TestAuthMiddleware_AccessTokenHeader(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateFn: func(_ context.Context, token string) (*model.User, error) {
			if token != "alt-token" {
				t.Errorf("unexpected token: %q", token)
			}
			return &model.User{ID: "u2", Username: "bob"}, nil
		},
	}

	mw := NewAuthMiddleware(authenticator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/1/movies/550", nil)
	req.Header.Set("X-Access-Token", "alt-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	mw := NewAuthMiddleware(&mockAuthenticator{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/1/users/profile", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// トークン欠落は403で拒否
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	envelope := decodeErrorEnvelope(t, w)
	if envelope.Error.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %s, want %s", envelope.Error.Code, model.ErrCodeUnauthorized)
	}
}

func TestAuthMiddleware_MalformedAuthorizationScheme(t *testing.T) {
	mw := NewAuthMiddleware(&mockAuthenticator{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/1/users/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, model.NewTokenRevokedError()
		},
	}

	mw := NewAuthMiddleware(authenticator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer revoked-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	envelope := decodeErrorEnvelope(t, w)
	if envelope.Error.Code != model.ErrCodeTokenRevoked {
		t.Errorf("code = %s, want %s", envelope.Error.Code, model.ErrCodeTokenRevoked)
	}
}

func TestUserFromContext_Missing(t *testing.T) {
	if _, err := UserFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user")
	}
}
