package apiclient

import (
	"context"
	"net/http"

	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

// Login exchanges credentials for a token pair and the signed-in user.
func (c *Client) Login(ctx context.Context, req contracts.LoginRequest) (contracts.AuthResult, error) {
	req, err := contracts.LoginSchema.Parse(req)
	if err != nil {
		return contracts.AuthResult{}, err
	}
	return call(ctx, c, request{
		op: "Login", method: http.MethodPost, path: "/auth/login", body: req,
	}, contracts.AuthResultSchema)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req contracts.RegisterRequest) (contracts.AuthResult, error) {
	req, err := contracts.RegisterSchema.Parse(req)
	if err != nil {
		return contracts.AuthResult{}, err
	}
	return call(ctx, c, request{
		op: "Register", method: http.MethodPost, path: "/auth/register", body: req,
	}, contracts.AuthResultSchema)
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (contracts.RefreshResponse, error) {
	req, err := contracts.RefreshTokenSchema.Parse(contracts.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return contracts.RefreshResponse{}, err
	}
	return call(ctx, c, request{
		op: "Refresh", method: http.MethodPost, path: "/auth/refresh", body: req,
	}, contracts.RefreshResponseSchema)
}

func (c *Client) ChangePassword(ctx context.Context, token string, req contracts.ChangePasswordRequest) error {
	req, err := contracts.ChangePasswordSchema.Parse(req)
	if err != nil {
		return err
	}
	_, err = call[struct{}](ctx, c, request{
		op: "ChangePassword", method: http.MethodPost, path: "/auth/change-password", token: token, body: req,
	}, nil)
	return err
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (contracts.AuthUser, error) {
	return call(ctx, c, request{
		op: "Me", method: http.MethodGet, path: "/auth/me", token: token,
	}, contracts.UserSchema)
}

// Logout revokes the token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := call[struct{}](ctx, c, request{
		op: "Logout", method: http.MethodPost, path: "/auth/logout", token: token,
	}, nil)
	return err
}
