package views

import (
	"html/template"
	"strconv"
	"time"

	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

const timeLayout = "2 Jan 2006 15:04"

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"roleIcon":    RoleIcon,
		"roleLabel":   func(r contracts.Role) string { return r.Label() },
		"statusBadge": StatusBadge,
		"statusLabel": func(s contracts.Status) string { return s.Label() },
		"formatTime":  FormatTime,
		"formatOpt":   FormatOptionalTime,
		"derefInt":    derefInt,
		"derefString": derefString,
		"roles":       contracts.Roles,
		"statuses":    contracts.Statuses,
		"usersURL":    UsersURL,
	}
}

// RoleIcon is the glyph shown next to a role.
func RoleIcon(r contracts.Role) string {
	switch r {
	case contracts.RoleAdmin:
		return "🛡️"
	case contracts.RoleDeveloper:
		return "💻"
	case contracts.RoleUser:
		return "👤"
	}
	return "❔"
}

// StatusBadge is the CSS class of a status badge.
func StatusBadge(s contracts.Status) string {
	switch s {
	case contracts.StatusActive:
		return "badge badge-success"
	case contracts.StatusInactive:
		return "badge badge-muted"
	case contracts.StatusPending:
		return "badge badge-warning"
	case contracts.StatusSuspended:
		return "badge badge-danger"
	}
	return "badge"
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.UTC().Format(timeLayout)
}

func FormatOptionalTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return FormatTime(*t)
}

func derefInt(v *int) string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(*v)
}

func derefString(v *string) string {
	if v == nil {
		return "Unknown"
	}
	return *v
}

// UsersURL links to page of the user list keeping the filters of q.
func UsersURL(q contracts.UserQuery, page int) string {
	return "/users?" + q.WithPage(page).Values().Encode()
}
