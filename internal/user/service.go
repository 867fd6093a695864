// Package user はユーザープロフィール管理と行動ログのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
)

// ProfileUpdate はプロフィール部分更新の入力。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Email       *string
	NewPassword *string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	activityRepo repository.ActivityRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// UpdateProfile はメールアドレスとパスワードを部分更新する。
// 新パスワードはbcryptでハッシュ化してから保存する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error {
	if update.Email == nil && update.NewPassword == nil {
		return model.NewValidationError("更新するフィールドがありません")
	}

	var passwordHash *string
	if update.NewPassword != nil {
		if *update.NewPassword == "" {
			return model.NewValidationError("パスワードは空にできません")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		hashStr := string(hash)
		passwordHash = &hashStr
	}

	if err := s.userRepo.Update(ctx, userID, update.Email, passwordHash, nil); err != nil {
		// メールアドレスのUNIQUE制約違反
		if update.Email != nil && repository.IsUniqueViolation(err) {
			return model.NewUserExistsError(*update.Email)
		}
		return model.NewStorageError()
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return nil
}

// ChangePassword はパスワードを変更する。
// 現在のパスワードを照合し、新パスワードが同一の場合はSAME_PASSWORDを返す。
func (s *Service) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return model.NewValidationError("oldPasswordとnewPasswordは必須です")
	}
	if oldPassword == newPassword {
		return model.NewSamePasswordError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return model.NewWrongPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}
	hashStr := string(hash)

	if err := s.userRepo.Update(ctx, user.ID, nil, &hashStr, nil); err != nil {
		return model.NewStorageError()
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	return nil
}

// RecordActivity はユーザーの行動イベントを追記する。
// occurredAtはクライアント申告のイベント発生時刻（ゼロ値なら現在時刻）。
// 追記された行動はレコメンド選択の入力（直近の行動）として参照される。
func (s *Service) RecordActivity(ctx context.Context, userID, action string, tmdbID int64, occurredAt time.Time) error {
	if action == "" {
		return model.NewValidationError("actionは必須です")
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	activity := &model.Activity{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		TmdbID:     tmdbID,
		OccurredAt: occurredAt,
		CreatedAt:  time.Now(),
	}

	if err := s.activityRepo.Append(ctx, activity); err != nil {
		return model.NewStorageError()
	}

	return nil
}
