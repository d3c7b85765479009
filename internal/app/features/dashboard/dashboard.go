// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"net/http"
	"slices"
	"time"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

const (
	recentWindow     = 30 * 24 * time.Hour
	recommendedLimit = 6
)

var errNoUser = apperr.Unauthorized("Token is not valid")

type userCard struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Level       string             `json:"level"`
	ImpactScore float64            `json:"impactScore"`
	JoinedAt    time.Time          `json:"joinedAt"`
}

type initiativeLists struct {
	Joined         []views.Joined      `json:"joined"`
	Organized      []models.Initiative `json:"organized"`
	Upcoming       []views.Joined      `json:"upcoming"`
	RecentActivity []views.Joined      `json:"recentActivity"`
	Recommended    []models.Initiative `json:"recommended"`
}

type summary struct {
	TotalJoined         int `json:"totalJoined"`
	TotalCompleted      int `json:"totalCompleted"`
	TotalOrganized      int `json:"totalOrganized"`
	UpcomingCount       int `json:"upcomingCount"`
	RecentActivityCount int `json:"recentActivityCount"`
}

// document is the dashboard read model.
type document struct {
	User         userCard             `json:"user"`
	Stats        models.UserStats     `json:"stats"`
	Achievements []impact.Achievement `json:"achievements"`
	Initiatives  initiativeLists      `json:"initiatives"`
	Summary      summary              `json:"summary"`
}

// ServeDashboard assembles the caller's dashboard. The initiative lookups
// run concurrently; any one failing fails the request.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "dashboard", errNoUser)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "dashboard", err)
		return
	}

	now := time.Now().UTC()
	var joined, organized, recommended []models.Initiative
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		joined, err = h.Initiatives.FindByIDs(gctx, u.JoinedIDs())
		return err
	})
	g.Go(func() error {
		var err error
		organized, err = h.Initiatives.FindByIDs(gctx, u.Initiatives.Organized)
		return err
	})
	g.Go(func() error {
		var err error
		recommended, err = h.Initiatives.Recommended(gctx, u.JoinedIDs(), now, recommendedLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.Write(w, r, "dashboard", err)
		return
	}

	h.Log.Debug("dashboard served", zap.String("user_id", uid.Hex()))
	uierrors.JSON(w, http.StatusOK, build(u, joined, organized, recommended, now))
}

// build assembles the dashboard document from already-loaded data.
func build(u *models.User, joined, organized, recommended []models.Initiative, now time.Time) document {
	sum := impact.Summarize(u.Stats)
	entries := views.PopulateJoined(u.Initiatives.Joined, joined)

	upcoming := make([]views.Joined, 0)
	recent := make([]views.Joined, 0)
	cutoff := now.Add(-recentWindow)
	for _, e := range entries {
		if in := e.Initiative; in != nil && in.Status == models.InitiativeUpcoming && in.Date.After(now) {
			upcoming = append(upcoming, e)
		}
		if e.JoinedAt.After(cutoff) {
			recent = append(recent, e)
		}
	}
	slices.SortStableFunc(upcoming, func(a, b views.Joined) int {
		return a.Initiative.Date.Compare(b.Initiative.Date)
	})
	slices.SortStableFunc(recent, func(a, b views.Joined) int {
		return b.JoinedAt.Compare(a.JoinedAt)
	})

	if recommended == nil {
		recommended = []models.Initiative{}
	}

	return document{
		User: userCard{
			ID:          u.ID,
			Name:        u.Name,
			Email:       u.Email,
			Level:       sum.Level,
			ImpactScore: sum.Score,
			JoinedAt:    u.CreatedAt,
		},
		Stats:        u.Stats,
		Achievements: sum.Achievements,
		Initiatives: initiativeLists{
			Joined:         entries,
			Organized:      views.Ordered(u.Initiatives.Organized, organized),
			Upcoming:       upcoming,
			RecentActivity: recent,
			Recommended:    recommended,
		},
		Summary: summary{
			TotalJoined:         u.Stats.InitiativesJoined,
			TotalCompleted:      u.Stats.InitiativesCompleted,
			TotalOrganized:      u.Stats.InitiativesOrganized,
			UpcomingCount:       len(upcoming),
			RecentActivityCount: len(recent),
		},
	}
}
