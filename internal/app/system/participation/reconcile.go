package participation

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultGrace is how old a discrepancy must be before the reconciler acts
// on it. Younger entries may belong to a join or leave still in flight.
const DefaultGrace = 2 * time.Minute

// Reconciler rebuilds users' joined lists from the initiative rosters.
//
// Membership comes from the rosters. Entries present on both sides keep the
// user's copy (its status and joined_at), roster-only entries are added with
// the roster's values, and user-only entries are dropped. The joined counter
// is always reset to the list length.
type Reconciler struct {
	Roster Roster
	Ledger Ledger
	Audit  *auditlog.Logger
	Log    *zap.Logger
	Grace  time.Duration
	Now    func() time.Time
}

// NewReconciler returns a Reconciler with DefaultGrace.
func NewReconciler(roster Roster, ledger Ledger, audit *auditlog.Logger, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{Roster: roster, Ledger: ledger, Audit: audit, Log: log, Grace: DefaultGrace}
}

// Report summarises one pass.
type Report struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	// Conflicts counts users whose list changed between read and write.
	// They are picked up by the next pass.
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
}

// Run reconciles every user. A failure on one user is logged and counted;
// only a failure to iterate users is returned.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report
	err := r.Ledger.ForEach(ctx, func(u models.User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Checked++
		repaired, err := r.ReconcileUser(ctx, u)
		switch {
		case errors.Is(err, errConflict):
			rep.Conflicts++
		case err != nil:
			rep.Failed++
			r.Log.Warn("reconcile user failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		case repaired:
			rep.Repaired++
		}
		return nil
	})
	return rep, err
}

// ReconcileUser repairs one user. It reports whether a write was made.
func (r *Reconciler) ReconcileUser(ctx context.Context, u models.User) (bool, error) {
	rosters, err := r.Roster.FindByParticipant(ctx, u.ID)
	if err != nil {
		return false, err
	}

	want := Expected(u, rosters, r.cutoff())
	if sameJoined(u.Initiatives.Joined, want) && u.Stats.InitiativesJoined == len(want) {
		return false, nil
	}

	applied, err := r.Ledger.ReplaceJoined(ctx, u.ID, u.Initiatives.Joined, want)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, errConflict
	}

	r.Log.Info("reconciled joined initiatives",
		zap.String("user_id", u.ID.Hex()),
		zap.Int("before", u.Stats.InitiativesJoined),
		zap.Int("after", len(want)),
	)
	r.Audit.ReconcileRepaired(ctx, u.ID, u.Stats.InitiativesJoined, len(want))
	return true, nil
}

var errConflict = errors.New("participation: joined list changed during reconcile")

func (r *Reconciler) cutoff() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	return now.Add(-r.Grace)
}

// Expected derives the joined list u should hold given the rosters that
// mention u. Discrepancies newer than cutoff are left as they are.
func Expected(u models.User, rosters []models.Initiative, cutoff time.Time) []models.JoinedInitiative {
	onRoster := make(map[primitive.ObjectID]models.Participant, len(rosters))
	for _, in := range rosters {
		for _, p := range in.Participants {
			if p.User == u.ID && models.IsActiveParticipation(p.Status) {
				onRoster[in.ID] = p
				break
			}
		}
	}

	out := make([]models.JoinedInitiative, 0, len(onRoster))
	seen := make(map[primitive.ObjectID]bool, len(u.Initiatives.Joined))
	for _, j := range u.Initiatives.Joined {
		if seen[j.Initiative] {
			continue
		}
		_, ok := onRoster[j.Initiative]
		if ok || j.JoinedAt.After(cutoff) {
			seen[j.Initiative] = true
			out = append(out, j)
		}
	}

	// Roster-only entries, in roster order.
	for _, in := range rosters {
		p, ok := onRoster[in.ID]
		if !ok || seen[in.ID] || p.JoinedAt.After(cutoff) {
			continue
		}
		seen[in.ID] = true
		out = append(out, models.JoinedInitiative{
			Initiative: in.ID,
			JoinedAt:   p.JoinedAt,
			Status:     p.Status,
		})
	}
	return out
}

func sameJoined(a, b []models.JoinedInitiative) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Initiative != b[i].Initiative || a[i].Status != b[i].Status || !a[i].JoinedAt.Equal(b[i].JoinedAt) {
			return false
		}
	}
	return true
}
