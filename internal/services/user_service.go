package services

import (
	"context"
	"errors"
	"strings"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"
)

type UserService struct {
	Repo       UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(repo UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

// Signup creates a tenant or owner account and returns a token for it.
// Admin accounts are never created through signup.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	// Validate input
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, apperrors.New(apperrors.KindValidation, "name, email, and password are required")
	}
	role := req.Role
	if role == "" {
		role = models.RoleTenant
	}
	if role != models.RoleTenant && role != models.RoleOwner {
		return nil, apperrors.New(apperrors.KindValidation, "role must be tenant or owner")
	}

	email := normalizeEmail(req.Email)

	// Check if user already exists
	existingUser, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.NotFound) {
		return nil, err
	}
	if existingUser != nil {
		return nil, apperrors.New(apperrors.KindValidation, "user with this email already exists")
	}

	// Hash password
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates a user and returns a JWT token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	invalid := apperrors.New(apperrors.KindUnauthorized, "invalid email or password")

	user, err := s.Repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, apperrors.NotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	// Verify password
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, invalid
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.KindForbidden, "account is suspended")
	}

	return s.issue(user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}
