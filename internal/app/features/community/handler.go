// internal/app/features/community/handler.go
package community

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	metricsstore "github.com/dalemusser/climatehub/internal/app/store/metrics"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// Routes wires the public community endpoints (mounted at /api/public).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.ServeStats)
	return r
}

type statsResponse struct {
	Users       int64               `json:"users"`
	Articles    int64               `json:"articles"`
	Initiatives initiativeCounts    `json:"initiatives"`
	Impact      metricsstore.Impact `json:"impact"`
}

type initiativeCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
}

// ServeStats reports community-wide totals. Counters that cannot be read
// are reported as zero rather than failing the page.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "community stats")
	defer cancel()

	counts := metricsstore.FetchCommunityCounts(ctx, h.DB)
	impact := metricsstore.FetchCommunityImpact(ctx, h.DB)

	h.Log.Debug("community stats served", zap.Int64("users", counts.Users))

	uierrors.JSON(w, http.StatusOK, statsResponse{
		Users:    counts.Users,
		Articles: counts.Articles,
		Initiatives: initiativeCounts{
			Total:     counts.Initiatives,
			Active:    counts.ActiveInitiatives,
			Completed: counts.CompletedInitiatives,
		},
		Impact: impact,
	})
}
