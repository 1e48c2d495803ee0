// Package apiclienttest provides a testify mock of the user-management API for
// handler tests.
package apiclienttest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

// Ensure implementation satisfies the interface
var _ apiclient.API = (*MockAPI)(nil)

// MockAPI is a mock implementation of apiclient.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Login(ctx context.Context, req contracts.LoginRequest) (contracts.AuthResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(contracts.AuthResult), args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, req contracts.RegisterRequest) (contracts.AuthResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(contracts.AuthResult), args.Error(1)
}

func (m *MockAPI) Refresh(ctx context.Context, refreshToken string) (contracts.RefreshResponse, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(contracts.RefreshResponse), args.Error(1)
}

func (m *MockAPI) ChangePassword(ctx context.Context, token string, req contracts.ChangePasswordRequest) error {
	args := m.Called(ctx, token, req)
	return args.Error(0)
}

func (m *MockAPI) Me(ctx context.Context, token string) (contracts.AuthUser, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(contracts.AuthUser), args.Error(1)
}

func (m *MockAPI) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPI) ListUsers(ctx context.Context, token string, q contracts.UserQuery) (contracts.UserListResponse, error) {
	args := m.Called(ctx, token, q)
	return args.Get(0).(contracts.UserListResponse), args.Error(1)
}

func (m *MockAPI) GetUser(ctx context.Context, token string, id int64) (contracts.UserDetail, error) {
	args := m.Called(ctx, token, id)
	return args.Get(0).(contracts.UserDetail), args.Error(1)
}

func (m *MockAPI) CreateUser(ctx context.Context, token string, req contracts.CreateUserRequest) (contracts.User, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(contracts.User), args.Error(1)
}

func (m *MockAPI) UpdateUser(ctx context.Context, token string, id int64, req contracts.UpdateUserRequest) (contracts.User, error) {
	args := m.Called(ctx, token, id, req)
	return args.Get(0).(contracts.User), args.Error(1)
}

func (m *MockAPI) ActivateUser(ctx context.Context, token string, id int64) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *MockAPI) DeactivateUser(ctx context.Context, token string, id int64) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *MockAPI) ResetPassword(ctx context.Context, token string, req contracts.ResetPasswordRequest) error {
	args := m.Called(ctx, token, req)
	return args.Error(0)
}

func (m *MockAPI) DeleteUser(ctx context.Context, token string, id int64) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *MockAPI) UserStats(ctx context.Context, token string) (contracts.UserStats, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(contracts.UserStats), args.Error(1)
}

func (m *MockAPI) SearchUsers(ctx context.Context, token, term string, limit int) ([]contracts.User, error) {
	args := m.Called(ctx, token, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.User), args.Error(1)
}

// SignedIn returns a session for a user with role that does not expire during
// a test.
func SignedIn(id int64, role contracts.Role) contracts.Session {
	return contracts.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    contracts.TokenTypeBearer,
		User: contracts.AuthUser{
			ID:       id,
			Email:    "viewer@example.com",
			Name:     "Viewer",
			Role:     role,
			Status:   contracts.StatusActive,
			IsActive: true,
		},
	}
}
