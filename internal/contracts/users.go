package contracts

import (
	"net/url"
	"strconv"
	"time"
)

// User is an account as returned by the API. The optional fields are only
// present on some endpoints: last_login on authenticated users, login_count
// and last_ip on the detail view.
type User struct {
	ID         int64      `json:"id" validate:"gt=0"`
	Email      string     `json:"email" validate:"email"`
	Name       string     `json:"name" validate:"min=2"`
	Role       Role       `json:"role" validate:"role"`
	Status     Status     `json:"status" validate:"status"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	LoginCount *int       `json:"login_count,omitempty" validate:"omitempty,gte=0"`
	LastIP     *string    `json:"last_ip,omitempty"`
}

type (
	AuthUser   = User
	UserDetail = User
)

// UserPatch is a partial user merged into the signed-in user.
type UserPatch struct {
	Email     *string
	Name      *string
	Role      *Role
	Status    *Status
	IsActive  *bool
	LastLogin *time.Time
}

// Apply returns u with every non-nil field of p copied over.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		u.LastLogin = &t
	}
	return u
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=8"`
	Name     string `json:"name" validate:"min=2"`
	Role     Role   `json:"role" validate:"role"`
	Status   Status `json:"status" validate:"status"`
}

// UpdateUserRequest is the body of PATCH /users/{id}. Absent fields are left
// untouched by the server.
type UpdateUserRequest struct {
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Role   *Role   `json:"role,omitempty" validate:"omitempty,role"`
	Status *Status `json:"status,omitempty" validate:"omitempty,status"`
}

// Empty reports whether the update carries no change.
func (r UpdateUserRequest) Empty() bool {
	return r.Email == nil && r.Name == nil && r.Role == nil && r.Status == nil
}

type ActivateUserRequest struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
}

type DeactivateUserRequest struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
}

type ResetPasswordRequest struct {
	UserID      int64  `json:"user_id" validate:"gt=0"`
	NewPassword string `json:"new_password" validate:"min=8"`
}

// UserQuery filters and pages GET /users.
type UserQuery struct {
	Page      int     `json:"page" validate:"gte=1"`
	PerPage   int     `json:"per_page" validate:"gte=1,lte=100"`
	Search    *string `json:"search,omitempty"`
	Role      *Role   `json:"role,omitempty" validate:"omitempty,role"`
	Status    *Status `json:"status,omitempty" validate:"omitempty,status"`
	SortBy    string  `json:"sort_by" validate:"oneof=id name email created_at updated_at"`
	SortOrder string  `json:"sort_order" validate:"oneof=asc desc"`
}

// Values encodes q as query parameters. Nil filters are omitted.
func (q UserQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("sort_by", q.SortBy)
	v.Set("sort_order", q.SortOrder)
	if q.Search != nil && *q.Search != "" {
		v.Set("search", *q.Search)
	}
	if q.Role != nil {
		v.Set("role", q.Role.String())
	}
	if q.Status != nil {
		v.Set("status", q.Status.String())
	}
	return v
}

// WithPage returns a copy of q pointing at page.
func (q UserQuery) WithPage(page int) UserQuery {
	q.Page = page
	return q
}

// UserListResponse is the data of GET /users.
type UserListResponse struct {
	Users      []User     `json:"users" validate:"dive"`
	Pagination Pagination `json:"pagination"`
}

// UserSearchResponse holds the matches of GET /users/search.
type UserSearchResponse struct {
	Users []User `json:"users" validate:"dive"`
}

// UserStats is the data of GET /users/stats.
type UserStats struct {
	TotalUsers            int `json:"total_users" validate:"gte=0"`
	ActiveUsers           int `json:"active_users" validate:"gte=0"`
	InactiveUsers         int `json:"inactive_users" validate:"gte=0"`
	PendingUsers          int `json:"pending_users" validate:"gte=0"`
	SuspendedUsers        int `json:"suspended_users" validate:"gte=0"`
	AdminUsers            int `json:"admin_users" validate:"gte=0"`
	DeveloperUsers        int `json:"developer_users" validate:"gte=0"`
	UserUsers             int `json:"user_users" validate:"gte=0"`
	UsersCreatedToday     int `json:"users_created_today" validate:"gte=0"`
	UsersCreatedThisWeek  int `json:"users_created_this_week" validate:"gte=0"`
	UsersCreatedThisMonth int `json:"users_created_this_month" validate:"gte=0"`
}

// ByStatus returns the count for s.
func (s UserStats) ByStatus(st Status) int {
	switch st {
	case StatusActive:
		return s.ActiveUsers
	case StatusInactive:
		return s.InactiveUsers
	case StatusPending:
		return s.PendingUsers
	case StatusSuspended:
		return s.SuspendedUsers
	}
	return 0
}

// ByRole returns the count for r.
func (s UserStats) ByRole(r Role) int {
	switch r {
	case RoleAdmin:
		return s.AdminUsers
	case RoleDeveloper:
		return s.DeveloperUsers
	case RoleUser:
		return s.UserUsers
	}
	return 0
}

var (
	UserSchema = NewSchema[User]("User")

	UserDetailSchema = NewSchema[UserDetail]("UserDetail")

	CreateUserSchema = NewSchema[CreateUserRequest]("CreateUserRequest").
				Default("role", string(RoleDeveloper)).
				Default("status", string(StatusActive)).
				Message("password", "min", "password must be at least 8 characters").
				Message("name", "min", "name must be at least 2 characters")

	UpdateUserSchema = NewSchema[UpdateUserRequest]("UpdateUserRequest").
				Message("name", "min", "name must be at least 2 characters")

	ActivateUserSchema = NewSchema[ActivateUserRequest]("ActivateUserRequest").
				Message("user_id", "gt", "user_id must be a positive integer")

	DeactivateUserSchema = NewSchema[DeactivateUserRequest]("DeactivateUserRequest").
				Message("user_id", "gt", "user_id must be a positive integer")

	ResetPasswordSchema = NewSchema[ResetPasswordRequest]("ResetPasswordRequest").
				Message("user_id", "gt", "user_id must be a positive integer").
				Message("new_password", "min", "new password must be at least 8 characters")

	UserQuerySchema = NewSchema[UserQuery]("UserQuery").
			Coerce().
			Default("page", 1).
			Default("per_page", 10).
			Default("sort_by", "created_at").
			Default("sort_order", "desc").
			Message("per_page", "lte", "per_page must be at most 100")

	UserListSchema = NewSchema[UserListResponse]("UserListResponse")

	UserSearchSchema = NewSchema[UserSearchResponse]("UserSearchResponse")

	UserStatsSchema = NewSchema[UserStats]("UserStats")
)
