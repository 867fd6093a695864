// Package auth は資格情報認証、トークン発行・検証、失効管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// TokenSecret はHMAC署名鍵。
	TokenSecret []byte
	// TokenTTL はアクセストークンの有効期間。
	TokenTTL time.Duration
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	BirthDate time.Time
	Email     string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	config    ServiceConfig
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		config:    config,
		logger:    logger,
	}
}

// Register は新規ユーザーを作成する。
// ユーザー名は小文字に正規化して保存し、パスワードはbcryptでハッシュ化する。
// 同名ユーザーが既に存在する場合はUSER_ALREADY_EXISTSを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return nil, model.NewValidationError("ユーザー名とパスワードは必須です")
	}
	// メールアドレスが空のままだとUNIQUE制約上 '' 同士で衝突し、
	// 無関係なユーザーの登録が重複扱いになる。
	if strings.TrimSpace(input.Email) == "" {
		return nil, model.NewValidationError("メールアドレスは必須です")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, model.NewValidationError("姓名は必須です")
	}
	if input.BirthDate.IsZero() {
		return nil, model.NewValidationError("生年月日は必須です")
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if existing != nil {
		return nil, model.NewUserExistsError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		BirthDate:    input.BirthDate,
		Email:        input.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// FindByUsernameとCreateの間に同名登録が割り込んだ場合
		if repository.IsUniqueViolation(err) {
			return nil, model.NewUserExistsError(username)
		}
		return nil, model.NewStorageError()
	}

	s.logger.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, nil
}

// Login は資格情報を検証しアクセストークンを発行する。
// ユーザーが存在しない場合はUSER_NOT_FOUND、パスワード不一致はWRONG_PASSWORDを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, model.NewStorageError()
	}
	if user == nil {
		return "", nil, model.NewUserNotFoundError(username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, model.NewWrongPasswordError()
	}

	token, err := s.GenerateToken(user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.logger.Info("user logged in", slog.String("username", username))
	return token, user, nil
}

// Logout はトークンを失効リストに登録する。
// 失効エントリはトークン自体の有効期限まで保持され、以降はクリーンアップジョブが削除する。
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return model.NewUnauthorizedError()
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return model.NewUnauthorizedError()
	}

	if err := s.tokenRepo.Revoke(ctx, token, expiresAt.Time); err != nil {
		return model.NewStorageError()
	}

	s.logger.Info("token revoked", slog.Time("expires_at", expiresAt.Time))
	return nil
}

// Authenticate はトークンを検証し、対応するユーザーを返す。
// 署名不正・期限切れはUNAUTHORIZED、失効済みはTOKEN_REVOKEDを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, token)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if revoked {
		return nil, model.NewTokenRevokedError()
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// GenerateToken はHS256署名のアクセストークンを発行する。
func (s *Service) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"username": username,
		"exp":      now.Add(s.config.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.TokenSecret)
}

// parseToken はトークンの署名と有効期限を検証しクレームを返す。
func (s *Service) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("予期しない署名方式です: %v", t.Header["alg"])
		}
		return s.config.TokenSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("トークンのクレームが不正です")
	}

	return claims, nil
}
