package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fieldwork/internal/pkg/apperror"
	jwtsvc "fieldwork/internal/pkg/jwt"
)

type Service struct {
	users *Repository
	jwt   *jwtsvc.Service
}

func NewService(users *Repository, jwt *jwtsvc.Service) *Service {
	return &Service{users: users, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	User        *User
	AccessToken string
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResult{User: user, AccessToken: token}, nil
}

// Register creates a user with a bcrypt-hashed password. Used by the seeder.
func (s *Service) Register(ctx context.Context, name, email, password string, role UserRole) (*User, error) {
	if _, ok := ParseRole(string(role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", apperror.ErrInvalidInput, role)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetByID(ctx, userID)
}
