package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// MinPasswordLength is the shortest accepted operator password.
const MinPasswordLength = 6

var errInvalidCredentials = apperrors.Unauthorized("invalid email or password")

// TokenIssuer signs access tokens for authenticated operators.
type TokenIssuer interface {
	Issue(userID, email, role string) (string, time.Time, error)
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is a signed access token and the operator it belongs to.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// CreateUserInput is the body of an operator create request.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required,oneof=admin seller"`
}

// UserService authenticates and manages operators.
type UserService struct {
	repo     repository.UserRepository
	tokens   TokenIssuer
	logger   *slog.Logger
	hashCost int
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens TokenIssuer, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Login checks the operator's credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt", slog.String("user_id", user.ID))
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("user is inactive")
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.logger.InfoContext(ctx, "operator logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		User:        user,
	}, nil
}

// Me returns the authenticated operator.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// List returns every operator. Only admins may list users.
func (s *UserService) List(ctx context.Context, actorRole string) ([]domain.User, error) {
	if actorRole != domain.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can list users")
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create adds an operator. Only admins may create users.
func (s *UserService) Create(ctx context.Context, actorRole string, input CreateUserInput) (*domain.User, error) {
	if actorRole != domain.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can create users")
	}
	user, err := s.newUser(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return user, nil
}

// EnsureAdmin creates the bootstrap admin when no user has its email. An
// empty email disables it.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	user, err := s.newUser(CreateUserInput{
		Email:    email,
		Password: password,
		FullName: "Administrador",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if err := s.repo.Create(ctx, user); err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.InfoContext(ctx, "bootstrap admin ensured", slog.String("email", email))
	return nil
}

func (s *UserService) newUser(input CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)

	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if fullName == "" {
		return nil, apperrors.InvalidInput("full name is required")
	}
	if !domain.IsValidRole(input.Role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", input.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         input.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
