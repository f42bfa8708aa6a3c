package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/auth"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// PublicProcedures lists the RPCs that do not require a token.
var PublicProcedures = []string{
	api.AuthServiceRegisterProcedure,
	api.AuthServiceLoginProcedure,
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

func (s *AuthService) issue(user *models.User) (*api.AuthResponse, error) {
	token, expiresAt, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return &api.AuthResponse{
		User:      toAPIUser(user),
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.AuthResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	email := auth.NormalizeEmail(req.Msg.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("a valid email is required"))
	}
	displayName, err := validateName("display_name", req.Msg.DisplayName)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	user, err := s.authenticator.Register(ctx, email, displayName, req.Msg.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			s.logger.Warn("Registration refused", "email", email, "error", err)
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, toConnectError(s.logger, "Register", err)
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(resp), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("Login failed", "email", req.Msg.Email)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, toConnectError(s.logger, "Login", err)
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(resp), nil
}

// Logout is a no-op: tokens are stateless and discarded by the client.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Logout request", "user_id", userID)
	return connect.NewResponse(&api.LogoutResponse{}), nil
}

// GetCurrentUser returns the authenticated user's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.UserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetCurrentUser", err)
	}
	return connect.NewResponse(&api.UserResponse{User: toAPIUser(user)}), nil
}

// UpdateProfile replaces the caller's display name, phone and photo path.
func (s *AuthService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	displayName, err := validateName("display_name", req.Msg.DisplayName)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateProfile", err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateProfile", err)
	}
	user.DisplayName = displayName
	user.Phone = strings.TrimSpace(req.Msg.Phone)
	user.PhotoPath = strings.TrimSpace(req.Msg.PhotoPath)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, toConnectError(s.logger, "UpdateProfile", err)
	}

	s.logger.Info("Profile updated", "user_id", userID)
	return connect.NewResponse(&api.UserResponse{User: toAPIUser(user)}), nil
}
