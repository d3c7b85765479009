package participation

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExpected(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-DefaultGrace)
	old := now.Add(-time.Hour)
	fresh := now.Add(-time.Second)

	uid := primitive.NewObjectID()
	both, rosterOnly, userOnly, freshRoster, freshUser, cancelled :=
		primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(),
		primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	u := models.User{ID: uid}
	u.Initiatives.Joined = []models.JoinedInitiative{
		{Initiative: both, JoinedAt: old, Status: models.ParticipationCompleted},
		{Initiative: both, JoinedAt: old, Status: models.ParticipationJoined},
		{Initiative: userOnly, JoinedAt: old, Status: models.ParticipationJoined},
		{Initiative: freshUser, JoinedAt: fresh, Status: models.ParticipationJoined},
	}
	entry := func(at time.Time, status string) []models.Participant {
		return []models.Participant{{User: uid, JoinedAt: at, Status: status}}
	}
	rosters := []models.Initiative{
		{ID: both, Participants: entry(old, models.ParticipationJoined)},
		{ID: rosterOnly, Participants: entry(old, models.ParticipationAttended)},
		{ID: freshRoster, Participants: entry(fresh, models.ParticipationJoined)},
		{ID: cancelled, Participants: entry(old, models.ParticipationCancelled)},
	}

	got := Expected(u, rosters, cutoff)
	want := []models.JoinedInitiative{
		{Initiative: both, JoinedAt: old, Status: models.ParticipationCompleted},
		{Initiative: freshUser, JoinedAt: fresh, Status: models.ParticipationJoined},
		{Initiative: rosterOnly, JoinedAt: old, Status: models.ParticipationAttended},
	}
	assert.Equal(t, want, got)
}

func TestReconciler_RepairsDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid, iid, stale := h.user(), h.initiative(10), h.initiative(10)
	now := time.Now().UTC()

	// Roster entry with no ledger entry, as left by a failed compensation.
	h.roster.AddParticipant(ctx, iid, uid, now.Add(-time.Hour))
	// Ledger entry with no roster entry and a wrong counter.
	h.ledger.RecordJoin(ctx, uid, stale, now.Add(-time.Hour))
	h.ledger.users[uid].Stats.InitiativesJoined = 7

	r := NewReconciler(h.roster, h.ledger, nil, nil)
	rep, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1, Repaired: 1}, rep)

	u := h.ledger.get(uid)
	require.Len(t, u.Initiatives.Joined, 1)
	assert.Equal(t, iid, u.Initiatives.Joined[0].Initiative)
	assert.Equal(t, 1, u.Stats.InitiativesJoined)

	// A second pass has nothing to do.
	rep, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1}, rep)
}

func TestReconciler_LeavesConsistentUsersAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid, iid := h.user(), h.initiative(10)
	_, err := h.coord.Join(ctx, iid, uid)
	require.NoError(t, err)

	r := NewReconciler(h.roster, h.ledger, nil, nil)
	r.Grace = 0
	repaired, err := r.ReconcileUser(ctx, h.ledger.get(uid))
	require.NoError(t, err)
	assert.False(t, repaired)
}

func TestReconciler_ConflictIsCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid, iid := h.user(), h.initiative(10)
	h.roster.AddParticipant(ctx, iid, uid, time.Now().Add(-time.Hour))

	snapshot := h.ledger.get(uid)
	// The list moves on after the snapshot was read.
	h.ledger.RecordJoin(ctx, uid, h.initiative(10), time.Now())

	r := NewReconciler(h.roster, h.ledger, nil, nil)
	_, err := r.ReconcileUser(ctx, snapshot)
	assert.ErrorIs(t, err, errConflict)
}
