package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

// AccountService coordina registro, login y rotación de sesión.
type AccountService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	tokens  *TokenService
	limiter LoginRateLimiter
}

func NewAccountService(logger *zap.Logger, users repository.UserRepository, tokens *TokenService, limiter LoginRateLimiter) *AccountService {
	return &AccountService{
		logger:  logger,
		users:   users,
		tokens:  tokens,
		limiter: limiter,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
	Phone    string
}

type LoginInput struct {
	Email    string
	Username string
	Phone    string
	Password string
}

var (
	ErrAllFieldsRequired  = errors.New("all fields are required")
	ErrLoginRequired      = errors.New("email, username or phone is required")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

// Register valida los cinco campos, hashea el password y crea el
// usuario. No emite tokens: registrarse no inicia sesión.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("account service not configured")
	}

	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))
	password := strings.TrimSpace(input.Password)
	phone := strings.TrimSpace(input.Phone)

	if fullName == "" || email == "" || username == "" || password == "" || phone == "" {
		return domain.User{}, ErrAllFieldsRequired
	}

	_, err := s.users.GetByLogin(ctx, username, email, phone)
	if err == nil {
		return domain.User{}, ErrUserExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Phone:        phone,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// Dos registros concurrentes con el mismo identificador: el
		// índice único decide, el perdedor ve un conflicto.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}

	return user, nil
}

// Login autentica por username, email o phone y emite el par de
// tokens. El refresh token queda persistido en el registro del usuario
// antes de devolver éxito, pisando cualquier token anterior.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (domain.User, TokenPair, error) {
	if s.users == nil || s.tokens == nil {
		return domain.User{}, TokenPair{}, errors.New("account service not configured")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))
	phone := strings.TrimSpace(input.Phone)
	password := strings.TrimSpace(input.Password)

	if email == "" && username == "" && phone == "" {
		return domain.User{}, TokenPair{}, ErrLoginRequired
	}

	if s.limiter != nil && !s.limiter.Allow(loginKey(username, email, phone)) {
		return domain.User{}, TokenPair{}, ErrRateLimited
	}

	user, err := s.users.GetByLogin(ctx, username, email, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, TokenPair{}, ErrUserNotFound
		}
		return domain.User{}, TokenPair{}, err
	}

	if user.PasswordHash == "" {
		return domain.User{}, TokenPair{}, ErrInvalidCredentials
	}
	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	if !ok {
		return domain.User{}, TokenPair{}, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Refresh rota la sesión: valida el refresh token presentado contra el
// valor almacenado y emite un par nuevo. Un token que ya fue pisado por
// un login o refresh posterior deja de servir.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (domain.User, TokenPair, error) {
	if s.users == nil || s.tokens == nil {
		return domain.User{}, TokenPair{}, errors.New("account service not configured")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, TokenPair{}, ErrJWTInvalid
		}
		return domain.User{}, TokenPair{}, err
	}

	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return domain.User{}, TokenPair{}, ErrJWTInvalid
	}

	return s.startSession(ctx, user)
}

// Logout invalida la sesión activa limpiando el refresh token almacenado.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if s.users == nil {
		return errors.New("account service not configured")
	}
	if err := s.users.UpdateRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AccountService) startSession(ctx context.Context, user domain.User) (domain.User, TokenPair, error) {
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	if err := s.users.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return domain.User{}, TokenPair{}, err
	}
	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

func loginKey(username, email, phone string) string {
	if username != "" {
		return username
	}
	if email != "" {
		return email
	}
	return phone
}
