package dashboard

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-admin-console/internal/api"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

const recentUsers = 5

type DashboardHandler struct {
	client apiclient.UsersAPI
	views  *views.Renderer
	logger *slog.Logger
}

func NewDashboardHandler(client apiclient.UsersAPI, renderer *views.Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		client: client,
		views:  renderer,
		logger: logger,
	}
}

// Dashboard loads the newest users and, for admins, the account statistics
// concurrently. A failure of either only hides that section.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Dashboard"))

	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	page := views.NewPage(w, r, "Dashboard")
	page.Active = "dashboard"

	var (
		data      views.DashboardData
		statsErr  error
		recentErr error
	)
	g, ctx := errgroup.WithContext(r.Context())

	if page.IsAdmin() {
		g.Go(func() error {
			stats, err := h.client.UserStats(ctx, token)
			if err != nil {
				statsErr = err
				return nil
			}
			data.Stats = &stats
			return nil
		})
	}

	g.Go(func() error {
		q := contracts.UserQuerySchema.MustParse(map[string]any{
			"per_page":   recentUsers,
			"sort_by":    "created_at",
			"sort_order": "desc",
		})
		res, err := h.client.ListUsers(ctx, token, q)
		if err != nil {
			recentErr = err
			return nil
		}
		data.Recent = res.Users
		return nil
	})
	_ = g.Wait()

	// Only an expired session leaves the page; anything else is shown inline.
	for _, err := range []error{recentErr, statsErr} {
		if apiclient.IsUnauthenticated(err) {
			if _, done := api.HandleFailure(w, r, store, err); done {
				return
			}
		}
	}
	if recentErr != nil {
		l.WarnContext(r.Context(), "Failed to load recent users", slog.Any("error", recentErr))
		data.RecentError = apiclient.DisplayMessage(recentErr)
	}
	if statsErr != nil {
		l.WarnContext(r.Context(), "Failed to load user statistics", slog.Any("error", statsErr))
		data.StatsError = apiclient.DisplayMessage(statsErr)
	}

	page.Data = data
	h.views.Render(w, r, http.StatusOK, views.PageDashboard, page)
}
