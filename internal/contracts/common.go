// Package contracts defines every payload exchanged between the console and the
// user-management API, together with the validation rules applied to them.
package contracts

import (
	"fmt"
	"math"
)

const (
	APIVersion = "v1"

	// Token lifetimes issued by the API server, in seconds.
	AccessTokenExpires  = 3600
	RefreshTokenExpires = 2592000

	// TokenTypeBearer is the only token type the API issues.
	TokenTypeBearer = "Bearer"
)

// Role is the access level of an account. Admin is a strict superset of developer.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
)

// Roles returns every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleDeveloper, RoleUser}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Label is the human readable name shown in the console.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleDeveloper:
		return "Developer"
	case RoleUser:
		return "User"
	}
	return "Unknown"
}

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// Statuses returns every status in display order.
func Statuses() []Status {
	return []Status{StatusActive, StatusInactive, StatusPending, StatusSuspended}
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	case StatusPending:
		return "Pending"
	case StatusSuspended:
		return "Suspended"
	}
	return "Unknown"
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return st, nil
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int  `json:"page" validate:"gte=1"`
	PerPage int  `json:"per_page" validate:"gte=1,lte=100"`
	Total   *int `json:"total,omitempty" validate:"omitempty,gte=0"`
	Pages   *int `json:"pages,omitempty" validate:"omitempty,gte=0"`
}

// NewPagination builds a Pagination whose page count is derived from total.
func NewPagination(page, perPage, total int) Pagination {
	pages := PageCount(total, perPage)
	return Pagination{Page: page, PerPage: perPage, Total: &total, Pages: &pages}
}

// PageCount returns ceil(total / perPage), or 0 when there is nothing to page.
func PageCount(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

// TotalPages returns Pages when the server sent it and derives it otherwise.
func (p Pagination) TotalPages() int {
	if p.Pages != nil {
		return *p.Pages
	}
	if p.Total != nil {
		return PageCount(*p.Total, p.PerPage)
	}
	return 0
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }

func (p Pagination) HasNext() bool { return p.Page < p.TotalPages() }

func (p Pagination) PrevNum() int {
	if !p.HasPrev() {
		return 0
	}
	return p.Page - 1
}

func (p Pagination) NextNum() int {
	if !p.HasNext() {
		return 0
	}
	return p.Page + 1
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessEnvelope wraps every 2xx response. Data is left undecoded so the caller
// can run it through the schema of the resource it expects.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty" validate:"omitempty"`
	Data    any    `json:"data,omitempty"`
}

var (
	PaginationSchema = NewSchema[Pagination]("Pagination").
				Default("page", 1).
				Default("per_page", 10).
				Message("per_page", "lte", "per_page must be at most 100")

	ErrorSchema = NewSchema[ErrorEnvelope]("Error")

	SuccessSchema = NewSchema[SuccessEnvelope]("Success").
			Default("success", true)
)
