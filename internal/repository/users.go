package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"slidestudio/internal/auth"
	"slidestudio/internal/database"
)

var ErrUsernameTaken = errors.New("username already exists")

func (r *Repository) CreateUser(ctx context.Context, u *database.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	var u database.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id uint) (*database.User, error) {
	var u database.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// UpdatePassword 写入新密码哈希并清除首次登录改密标记。
func (r *Repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":        hash,
		"must_change_password": false,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SessionFor 将账号转换为请求会话。
func SessionFor(u database.User) auth.Session {
	return auth.Session{
		UserID:             u.ID,
		Username:           u.Username,
		Role:               auth.Role(u.Role),
		MustChangePassword: u.MustChangePassword,
	}
}
