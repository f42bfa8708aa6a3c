package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// AuthServiceName is the fully-qualified name of the AuthService.
const AuthServiceName = Package + ".AuthService"

// Procedure paths.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceLogoutProcedure         = "/" + AuthServiceName + "/Logout"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
	AuthServiceUpdateProfileProcedure  = "/" + AuthServiceName + "/UpdateProfile"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
	// ExpiresAt is when Token stops being accepted, Unix seconds.
	ExpiresAt int64 `json:"expires_at"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

// UpdateProfileRequest replaces the editable profile fields.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	PhotoPath   string `json:"photo_path"`
}

type UserResponse struct {
	User User `json:"user"`
}

// AuthServiceHandler is implemented by the server side of the AuthService.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	Logout(context.Context, *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error)
	UpdateProfile(context.Context, *connect.Request[UpdateProfileRequest]) (*connect.Response[UserResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler for every AuthService procedure and
// returns the path prefix to mount it under.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(AuthServiceName,
		unary(AuthServiceRegisterProcedure, svc.Register, opts),
		unary(AuthServiceLoginProcedure, svc.Login, opts),
		unary(AuthServiceLogoutProcedure, svc.Logout, opts),
		unary(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts),
		unary(AuthServiceUpdateProfileProcedure, svc.UpdateProfile, opts),
	)
}

// AuthServiceClient calls a remote AuthService.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	logout         *connect.Client[LogoutRequest, LogoutResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, UserResponse]
	updateProfile  *connect.Client[UpdateProfileRequest, UserResponse]
}

// NewAuthServiceClient returns a client for the AuthService served at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       newClient[RegisterRequest, AuthResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		login:          newClient[LoginRequest, AuthResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		logout:         newClient[LogoutRequest, LogoutResponse](httpClient, baseURL, AuthServiceLogoutProcedure, opts),
		getCurrentUser: newClient[GetCurrentUserRequest, UserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
		updateProfile:  newClient[UpdateProfileRequest, UserResponse](httpClient, baseURL, AuthServiceUpdateProfileProcedure, opts),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *AuthServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[UserResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}
