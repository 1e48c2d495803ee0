package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

func userPath(id int64, suffix string) string {
	return "/users/" + strconv.FormatInt(id, 10) + suffix
}

// ListUsers returns one page of users matching q.
func (c *Client) ListUsers(ctx context.Context, token string, q contracts.UserQuery) (contracts.UserListResponse, error) {
	q, err := contracts.UserQuerySchema.Parse(q)
	if err != nil {
		return contracts.UserListResponse{}, err
	}
	return call(ctx, c, request{
		op: "ListUsers", method: http.MethodGet, path: "/users", query: q.Values(), token: token,
	}, contracts.UserListSchema)
}

func (c *Client) GetUser(ctx context.Context, token string, id int64) (contracts.UserDetail, error) {
	return call(ctx, c, request{
		op: "GetUser", method: http.MethodGet, path: userPath(id, ""), token: token,
	}, contracts.UserDetailSchema)
}

func (c *Client) CreateUser(ctx context.Context, token string, req contracts.CreateUserRequest) (contracts.User, error) {
	req, err := contracts.CreateUserSchema.Parse(req)
	if err != nil {
		return contracts.User{}, err
	}
	return call(ctx, c, request{
		op: "CreateUser", method: http.MethodPost, path: "/users", token: token, body: req,
	}, contracts.UserSchema)
}

// UpdateUser sends only the fields set in req.
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, req contracts.UpdateUserRequest) (contracts.User, error) {
	req, err := contracts.UpdateUserSchema.Parse(req)
	if err != nil {
		return contracts.User{}, err
	}
	return call(ctx, c, request{
		op: "UpdateUser", method: http.MethodPatch, path: userPath(id, ""), token: token, body: req,
	}, contracts.UserSchema)
}

func (c *Client) ActivateUser(ctx context.Context, token string, id int64) error {
	if _, err := contracts.ActivateUserSchema.Parse(contracts.ActivateUserRequest{UserID: id}); err != nil {
		return err
	}
	_, err := call[struct{}](ctx, c, request{
		op: "ActivateUser", method: http.MethodPost, path: userPath(id, "/activate"), token: token,
	}, nil)
	return err
}

func (c *Client) DeactivateUser(ctx context.Context, token string, id int64) error {
	if _, err := contracts.DeactivateUserSchema.Parse(contracts.DeactivateUserRequest{UserID: id}); err != nil {
		return err
	}
	_, err := call[struct{}](ctx, c, request{
		op: "DeactivateUser", method: http.MethodPost, path: userPath(id, "/deactivate"), token: token,
	}, nil)
	return err
}

// ResetPassword sets a new password for another user. Only admins may call it.
func (c *Client) ResetPassword(ctx context.Context, token string, req contracts.ResetPasswordRequest) error {
	req, err := contracts.ResetPasswordSchema.Parse(req)
	if err != nil {
		return err
	}
	_, err = call[struct{}](ctx, c, request{
		op: "ResetPassword", method: http.MethodPost, path: userPath(req.UserID, "/reset-password"), token: token, body: req,
	}, nil)
	return err
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	_, err := call[struct{}](ctx, c, request{
		op: "DeleteUser", method: http.MethodDelete, path: userPath(id, ""), token: token,
	}, nil)
	return err
}

// UserStats returns account counts. Only admins may call it.
func (c *Client) UserStats(ctx context.Context, token string) (contracts.UserStats, error) {
	return call(ctx, c, request{
		op: "UserStats", method: http.MethodGet, path: "/users/stats", token: token,
	}, contracts.UserStatsSchema)
}

// SearchUsers returns at most limit users whose name or email matches term.
func (c *Client) SearchUsers(ctx context.Context, token, term string, limit int) ([]contracts.User, error) {
	q := url.Values{"q": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.do(ctx, request{
		op: "SearchUsers", method: http.MethodGet, path: "/users/search", query: q, token: token,
	})
	if err != nil {
		return nil, err
	}
	res, err := contracts.UserSearchSchema.Parse(map[string]any{"users": data})
	if err != nil {
		return nil, &NetworkError{Op: "SearchUsers", Err: err}
	}
	return res.Users, nil
}
