package service

import (
	"assetdesk/internal/auth"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=80"`
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	Role        model.Role `json:"role"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

// UserService covers signup, login and user lookups
type UserService interface {
	Signup(ctx context.Context, req SignupRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	tokens    *auth.TokenManager
	hashCost  int
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens *auth.TokenManager,
) UserService {
	return &userService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		tokens:    tokens,
		hashCost:  bcrypt.DefaultCost,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(timeLayout),
		UpdatedAt: user.UpdatedAt.Format(timeLayout),
	}
}

func (s *userService) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, validationError("username, email and password are required")
	}

	// Role is fixed here, once, from the email domain.
	role := model.ResolveRole(email)
	if !role.Valid() {
		return nil, ErrUnresolvedRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetByUsername(txCtx, username); err == nil {
			return ErrDuplicateIdentity
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("database error: %w", err)
		}

		if _, err := s.repo.GetByEmail(txCtx, email); err == nil {
			return ErrDuplicateIdentity
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.repo.Create(txCtx, user); err != nil {
			// Lost a race with a concurrent signup.
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDuplicateIdentity
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		return recordAudit(txCtx, s.auditRepo, user.ID, model.ActionSignup, user.ID.String(), user.Username,
			map[string]interface{}{"email": user.Email, "role": user.Role})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		Role:        user.Role,
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}
