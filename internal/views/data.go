package views

import "github.com/FACorreiaa/go-admin-console/internal/contracts"

type DashboardData struct {
	Stats       *contracts.UserStats
	StatsError  string
	Recent      []contracts.User
	RecentError string
}

type UsersData struct {
	Users      []contracts.User
	Pagination contracts.Pagination
	Query      contracts.UserQuery
}

type UserDetailData struct {
	User   contracts.UserDetail
	IsSelf bool
}

// PerPageOptions are the page sizes offered by the list.
func (d UsersData) PerPageOptions() []int {
	return []int{10, 25, 50, 100}
}

func (d UsersData) SearchTerm() string {
	if d.Query.Search == nil {
		return ""
	}
	return *d.Query.Search
}

func (d UsersData) RoleSelected(r contracts.Role) bool {
	return d.Query.Role != nil && *d.Query.Role == r
}

func (d UsersData) StatusSelected(s contracts.Status) bool {
	return d.Query.Status != nil && *d.Query.Status == s
}

// Total is the number of matching users, or 0 when the server did not say.
func (d UsersData) Total() int {
	if d.Pagination.Total == nil {
		return 0
	}
	return *d.Pagination.Total
}
