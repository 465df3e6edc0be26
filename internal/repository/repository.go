package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 表示记录不存在，handler 据此返回 404。
var ErrNotFound = errors.New("record not found")

// Repository 基于 GORM 实现各业务包定义的存储接口。
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB { return r.db }

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
