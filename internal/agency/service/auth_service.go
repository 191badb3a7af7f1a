package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// LoginResult session token and user
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"exp"`
	User      *entity.User `json:"user"`
}

// AuthService password login and account lookups
type AuthService struct {
	repo *repository.UserRepository
	jwt  config.JWTConfig
}

func NewAuthService(repo *repository.UserRepository, jwt config.JWTConfig) *AuthService {
	if jwt.AccessTokenExpire <= 0 {
		jwt.AccessTokenExpire = 7 * 24 * time.Hour
	}
	return &AuthService{repo: repo, jwt: jwt}
}

// HashPassword returns the bcrypt hash stored on the user.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the password and issues a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrUnauthorized
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *entity.User) (*LoginResult, error) {
	token, exp, err := middleware.GenerateToken(s.jwt.Secret, s.jwt.Issuer, s.jwt.AccessTokenExpire, user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// TokenTTL is how long issued tokens and cookies live.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwt.AccessTokenExpire
}

func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// CreateUserInput new account
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
	Locale   string
}

// CreateUser registers an account. Email must be unique.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !ValidEmail(email) {
		return nil, validationf("invalid email %q", in.Email)
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationf("password must be at least %d characters", minPasswordLength)
	}
	role := in.Role
	if role == "" {
		role = entity.RoleCustomer
	}
	if role != entity.RoleCustomer && !entity.IsStaff(role) {
		return nil, validationf("unknown role %q", role)
	}
	locale := in.Locale
	if locale == "" {
		locale = "ru"
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &entity.User{
		ID:           newID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		Locale:       locale,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %s already registered: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
