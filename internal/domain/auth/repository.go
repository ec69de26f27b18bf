package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RolesByID returns the role of every existing user among ids.
func (r *Repository) RolesByID(ctx context.Context, ids []int64) (map[int64]UserRole, error) {
	out := make(map[int64]UserRole, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []User
	if err := r.db.WithContext(ctx).Select("id", "role").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Role
	}
	return out, nil
}

func (r *Repository) IDsByRole(ctx context.Context, role UserRole) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("role = ?", role).Order("id").Pluck("id", &ids).Error
	return ids, err
}
