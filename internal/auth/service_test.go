package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mael/cinetrack/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	updateFn         func(ctx context.Context, id string, email, passwordHash, profilePicture *string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, id string, email, passwordHash, profilePicture *string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, email, passwordHash, profilePicture)
	}
	return nil
}

type mockTokenRepo struct {
	revokeFn        func(ctx context.Context, token string, expiresAt time.Time) error
	isRevokedFn     func(ctx context.Context, token string) (bool, error)
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockTokenRepo) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, token, expiresAt)
	}
	return nil
}

func (m *mockTokenRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	if m.isRevokedFn != nil {
		return m.isRevokedFn(ctx, token)
	}
	return false, nil
}

func (m *mockTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

func newTestService(userRepo *mockUserRepo, tokenRepo *mockTokenRepo) *Service {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	return NewService(userRepo, tokenRepo, ServiceConfig{
		TokenSecret: []byte("test-secret"),
		TokenTTL:    24 * time.Hour,
	}, logger)
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(userRepo, &mockTokenRepo{})

	user, err := svc.Register(context.Background(), RegisterInput{
		Username:  "  Alice  ",
		Password:  "secret123",
		FirstName: "Alice",
		LastName:  "Martin",
		BirthDate: time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC),
		Email:     "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// ユーザー名は小文字に正規化される
	if user.Username != "alice" {
		t.Errorf("expected normalized username 'alice', got %q", user.Username)
	}
	if created == nil {
		t.Fatal("expected user to be persisted")
	}

	// 平文パスワードは保存されずbcryptハッシュのみ
	if created.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "u1", Username: "alice"}, nil
		},
	}
	svc := newTestService(userRepo, &mockTokenRepo{})

	_, err := svc.Register(context.Background(), fullRegisterInput())
	if code := apiErrorCode(t, err); code != "USER_ALREADY_EXISTS" {
		t.Errorf("expected USER_ALREADY_EXISTS, got %s", code)
	}
}

func fullRegisterInput() RegisterInput {
	return RegisterInput{
		Username:  "alice",
		Password:  "secret123",
		FirstName: "Alice",
		LastName:  "Martin",
		BirthDate: time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC),
		Email:     "alice@example.com",
	}
}

func TestRegister_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"ユーザー名なし", func(in *RegisterInput) { in.Username = "" }},
		{"パスワードなし", func(in *RegisterInput) { in.Password = "" }},
		{"メールアドレスなし", func(in *RegisterInput) { in.Email = "  " }},
		{"名なし", func(in *RegisterInput) { in.FirstName = "" }},
		{"姓なし", func(in *RegisterInput) { in.LastName = "" }},
		{"生年月日なし", func(in *RegisterInput) { in.BirthDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created bool
			userRepo := &mockUserRepo{
				createFn: func(_ context.Context, _ *model.User) error {
					created = true
					return nil
				},
			}
			svc := newTestService(userRepo, &mockTokenRepo{})

			input := fullRegisterInput()
			tt.mutate(&input)

			_, err := svc.Register(context.Background(), input)
			if code := apiErrorCode(t, err); code != "VALIDATION_FAILED" {
				t.Errorf("expected VALIDATION_FAILED, got %s", code)
			}
			if created {
				t.Error("user must not be persisted on validation failure")
			}
		})
	}
}

// --- Login ---

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockTokenRepo{})

	_, _, err := svc.Login(context.Background(), "ghost", "pw")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != "USER_NOT_FOUND" || apiErr.Status != 404 {
		t.Errorf("expected USER_NOT_FOUND/404, got %s/%d", apiErr.Code, apiErr.Status)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "u1", Username: "alice", PasswordHash: hashOf(t, "correct")}, nil
		},
	}
	svc := newTestService(userRepo, &mockTokenRepo{})

	_, _, err := svc.Login(context.Background(), "alice", "wrong")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != "WRONG_PASSWORD" || apiErr.Status != 403 {
		t.Errorf("expected WRONG_PASSWORD/403, got %s/%d", apiErr.Code, apiErr.Status)
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	user := &model.User{ID: "u1", Username: "alice", PasswordHash: hashOf(t, "secret123")}
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
	}
	svc := newTestService(userRepo, &mockTokenRepo{})

	token, got, err := svc.Login(context.Background(), "Alice", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("expected user u1, got %s", got.ID)
	}

	// 発行したトークンでそのまま認証できること
	authed, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if authed.Username != "alice" {
		t.Errorf("expected authenticated user alice, got %s", authed.Username)
	}
}

// --- Authenticate ---

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockTokenRepo{})

	_, err := svc.Authenticate(context.Background(), "not-a-jwt")
	if code := apiErrorCode(t, err); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", code)
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	other := newTestService(&mockUserRepo{}, &mockTokenRepo{})
	token, err := other.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	svc := NewService(&mockUserRepo{}, &mockTokenRepo{}, ServiceConfig{
		TokenSecret: []byte("different-secret"),
		TokenTTL:    time.Hour,
	}, logger)

	if _, err := svc.Authenticate(context.Background(), token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	tokenRepo := &mockTokenRepo{
		isRevokedFn: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(&mockUserRepo{}, tokenRepo)

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	if code := apiErrorCode(t, err); code != "TOKEN_REVOKED" {
		t.Errorf("expected TOKEN_REVOKED, got %s", code)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	svc := NewService(&mockUserRepo{}, &mockTokenRepo{}, ServiceConfig{
		TokenSecret: []byte("test-secret"),
		TokenTTL:    -time.Hour,
	}, logger)

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	if code := apiErrorCode(t, err); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED for expired token, got %s", code)
	}
}

// --- Logout ---

func TestLogout_RevokesUntilTokenExpiry(t *testing.T) {
	var revokedToken string
	var revokedUntil time.Time
	tokenRepo := &mockTokenRepo{
		revokeFn: func(_ context.Context, token string, expiresAt time.Time) error {
			revokedToken = token
			revokedUntil = expiresAt
			return nil
		},
	}
	svc := newTestService(&mockUserRepo{}, tokenRepo)

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if revokedToken != token {
		t.Error("expected the presented token to be revoked")
	}

	// 失効エントリの保持期限はトークン自体の有効期限
	wantExpiry := time.Now().Add(24 * time.Hour)
	if diff := revokedUntil.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("unexpected revocation expiry: %v", revokedUntil)
	}
}

func TestLogout_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockTokenRepo{})

	err := svc.Logout(context.Background(), "garbage")
	if code := apiErrorCode(t, err); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", code)
	}
}
