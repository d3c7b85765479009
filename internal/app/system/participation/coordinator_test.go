package participation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type harness struct {
	roster *fakeRoster
	ledger *fakeLedger
	coord  *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{roster: newFakeRoster(), ledger: newFakeLedger()}
	h.coord = New(h.roster, h.ledger, nil, nil, nil)
	h.coord.Retry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return h
}

func (h *harness) user() primitive.ObjectID {
	return h.ledger.put(models.User{Name: "Member"})
}

func (h *harness) initiative(max int) primitive.ObjectID {
	return h.roster.put(models.Initiative{Title: "Beach Cleanup", MaxParticipants: max})
}

func activeCount(in models.Initiative, userID primitive.ObjectID) int {
	n := 0
	for _, p := range in.Participants {
		if p.User == userID && models.IsActiveParticipation(p.Status) {
			n++
		}
	}
	return n
}

func TestJoin_RecordsBothSides(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)

	res, err := h.coord.Join(context.Background(), iid, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ParticipantCount)

	in := h.roster.get(iid)
	assert.Equal(t, 1, activeCount(in, uid))
	assert.Equal(t, models.ParticipationJoined, in.Participants[0].Status)

	u := h.ledger.get(uid)
	require.Len(t, u.Initiatives.Joined, 1)
	assert.Equal(t, iid, u.Initiatives.Joined[0].Initiative)
	assert.Equal(t, 1, u.Stats.InitiativesJoined)
	assert.True(t, u.Initiatives.Joined[0].JoinedAt.Equal(in.Participants[0].JoinedAt))
}

func TestJoin_Errors(t *testing.T) {
	h := newHarness(t)
	uid := h.user()
	full := h.initiative(1)
	h.roster.AddParticipant(context.Background(), full, primitive.NewObjectID(), time.Now())
	open := h.initiative(5)
	_, err := h.coord.Join(context.Background(), open, uid)
	require.NoError(t, err)

	tests := []struct {
		name   string
		init   primitive.ObjectID
		user   primitive.ObjectID
		target error
	}{
		{"unknown user", open, primitive.NewObjectID(), userstore.ErrNotFound},
		{"unknown initiative", primitive.NewObjectID(), uid, initiativestore.ErrNotFound},
		{"unknown initiative and user", primitive.NewObjectID(), primitive.NewObjectID(), initiativestore.ErrNotFound},
		{"full", full, uid, initiativestore.ErrFull},
		{"already joined", open, uid, initiativestore.ErrAlreadyJoined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.coord.Join(context.Background(), tt.init, tt.user)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	// The failed attempts must not have touched the ledger.
	assert.Equal(t, 1, h.ledger.get(uid).Stats.InitiativesJoined)
}

func TestJoin_CapacityOneScenario(t *testing.T) {
	h := newHarness(t)
	a, b, iid := h.user(), h.user(), h.initiative(1)
	ctx := context.Background()

	_, err := h.coord.Join(ctx, iid, a)
	require.NoError(t, err)

	_, err = h.coord.Join(ctx, iid, b)
	require.ErrorIs(t, err, initiativestore.ErrFull)
	assert.Equal(t, "Initiative is full", apperr.Message(err))

	_, err = h.coord.Leave(ctx, iid, a)
	require.NoError(t, err)

	res, err := h.coord.Join(ctx, iid, b)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ParticipantCount)
	assert.Equal(t, 0, h.ledger.get(a).Stats.InitiativesJoined)
	assert.Equal(t, 1, h.ledger.get(b).Stats.InitiativesJoined)
}

func TestJoin_ConcurrentNeverExceedsCapacity(t *testing.T) {
	h := newHarness(t)
	iid := h.initiative(3)
	users := make([]primitive.ObjectID, 10)
	for i := range users {
		users[i] = h.user()
	}

	var wg sync.WaitGroup
	for _, uid := range users {
		wg.Add(1)
		go func(uid primitive.ObjectID) {
			defer wg.Done()
			h.coord.Join(context.Background(), iid, uid)
		}(uid)
	}
	wg.Wait()

	in := h.roster.get(iid)
	assert.Len(t, in.Participants, 3)
	joined := 0
	for _, uid := range users {
		joined += h.ledger.get(uid).Stats.InitiativesJoined
	}
	assert.Equal(t, 3, joined)
}

func TestJoin_RetriesLedgerWrite(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	h.ledger.joinFailures = 2
	h.ledger.joinErr = errTransient

	_, err := h.coord.Join(context.Background(), iid, uid)
	require.NoError(t, err)
	assert.Equal(t, 3, h.ledger.joinCalls)
	assert.Equal(t, 1, h.ledger.get(uid).Stats.InitiativesJoined)
}

func TestJoin_CompensatesWhenLedgerKeepsFailing(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	h.ledger.joinFailures = 100
	h.ledger.joinErr = errTransient

	_, err := h.coord.Join(context.Background(), iid, uid)
	require.ErrorIs(t, err, ErrProfileIncomplete)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Unable to join initiative: user profile is incomplete", apperr.Message(err))
	assert.Equal(t, 3, h.ledger.joinCalls)

	assert.Empty(t, h.roster.get(iid).Participants)
	assert.Equal(t, 0, h.ledger.get(uid).Stats.InitiativesJoined)
}

func TestJoin_PermanentLedgerErrorIsNotRetried(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	h.ledger.joinFailures = 100
	h.ledger.joinErr = apperr.Validation("profile rejected")

	_, err := h.coord.Join(context.Background(), iid, uid)
	require.ErrorIs(t, err, ErrProfileIncomplete)
	assert.Equal(t, 1, h.ledger.joinCalls)
}

func TestJoin_CompensationFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	h.ledger.joinFailures = 100
	h.ledger.joinErr = errTransient
	h.roster.removeErr = errors.New("primary stepped down")

	_, err := h.coord.Join(context.Background(), iid, uid)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorIs(t, err, errTransient)

	// The roster keeps the entry; reconciliation picks it up later.
	assert.Len(t, h.roster.get(iid).Participants, 1)
}

func TestJoin_InTransaction(t *testing.T) {
	h := newHarness(t)
	tx := &passTx{}
	h.coord.Tx = tx
	uid, iid := h.user(), h.initiative(10)

	res, err := h.coord.Join(context.Background(), iid, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1, res.ParticipantCount)
	assert.Equal(t, 1, h.ledger.get(uid).Stats.InitiativesJoined)
}

func TestLeave_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	ctx := context.Background()
	_, err := h.coord.Join(ctx, iid, uid)
	require.NoError(t, err)

	res, err := h.coord.Leave(ctx, iid, uid)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, 0, res.ParticipantCount)

	res, err = h.coord.Leave(ctx, iid, uid)
	require.NoError(t, err)
	assert.False(t, res.Removed)

	u := h.ledger.get(uid)
	assert.Equal(t, 0, u.Stats.InitiativesJoined)
	assert.Empty(t, u.Initiatives.Joined)
}

func TestLeave_UnknownInitiative(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Leave(context.Background(), primitive.NewObjectID(), h.user())
	assert.ErrorIs(t, err, initiativestore.ErrNotFound)
}

func TestComplete(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	actor := primitive.NewObjectID()
	ctx := context.Background()
	_, err := h.coord.Join(ctx, iid, uid)
	require.NoError(t, err)

	d := impact.Delta{CO2Reduced: 5, TreesPlanted: 10, WasteCollected: 2}
	res, err := h.coord.Complete(ctx, iid, uid, actor, d)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Stats.InitiativesCompleted)
	assert.Equal(t, 10.0, res.Stats.TreesPlanted)

	// Second completion is a no-op.
	res, err = h.coord.Complete(ctx, iid, uid, actor, d)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 1, res.Stats.InitiativesCompleted)
	assert.Equal(t, 10.0, res.Stats.TreesPlanted)

	in := h.roster.get(iid)
	p, ok := in.Participant(uid)
	require.True(t, ok)
	assert.Equal(t, models.ParticipationCompleted, p.Status)
}

func TestComplete_Errors(t *testing.T) {
	h := newHarness(t)
	uid, iid := h.user(), h.initiative(10)
	ctx := context.Background()

	_, err := h.coord.Complete(ctx, iid, uid, uid, impact.Delta{TreesPlanted: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.coord.Complete(ctx, iid, uid, uid, impact.Delta{})
	assert.ErrorIs(t, err, userstore.ErrNotJoined)

	_, err = h.coord.Complete(ctx, primitive.NewObjectID(), uid, uid, impact.Delta{})
	assert.ErrorIs(t, err, initiativestore.ErrNotFound)
}

func TestComplete_ScoreIsMonotone(t *testing.T) {
	h := newHarness(t)
	uid := h.user()
	ctx := context.Background()
	prev := 0.0
	for i := 0; i < 4; i++ {
		iid := h.initiative(10)
		_, err := h.coord.Join(ctx, iid, uid)
		require.NoError(t, err)
		res, err := h.coord.Complete(ctx, iid, uid, uid, impact.Delta{CO2Reduced: float64(i), WasteCollected: 1})
		require.NoError(t, err)
		score := impact.Score(res.Stats)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestOrganize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	organizer := h.user()

	created, err := h.coord.Organize(ctx, models.Initiative{Title: "Tree Day"}, organizer)
	require.NoError(t, err)
	assert.Equal(t, organizer, created.Organizer)
	u := h.ledger.get(organizer)
	assert.Equal(t, 1, u.Stats.InitiativesOrganized)
	assert.Equal(t, []primitive.ObjectID{created.ID}, u.Initiatives.Organized)
}

func TestOrganize_FallsBackToAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.coord.Organize(ctx, models.Initiative{Title: "Tree Day"}, primitive.NilObjectID)
	require.ErrorIs(t, err, ErrNoOrganizer)

	admin := h.ledger.put(models.User{Name: "Admin", Role: models.RoleAdmin})
	created, err := h.coord.Organize(ctx, models.Initiative{Title: "Tree Day"}, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, admin, created.Organizer)
}

func TestRetire_PullsParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	organizer, a, b := h.user(), h.user(), h.user()

	created, err := h.coord.Organize(ctx, models.Initiative{Title: "Solar Workshop", MaxParticipants: 5}, organizer)
	require.NoError(t, err)
	for _, uid := range []primitive.ObjectID{a, b} {
		_, err := h.coord.Join(ctx, created.ID, uid)
		require.NoError(t, err)
	}

	require.NoError(t, h.coord.Retire(ctx, created.ID, organizer))

	for _, uid := range []primitive.ObjectID{a, b} {
		u := h.ledger.get(uid)
		assert.Empty(t, u.Initiatives.Joined)
		assert.Equal(t, 0, u.Stats.InitiativesJoined)
	}
	assert.Equal(t, 0, h.ledger.get(organizer).Stats.InitiativesOrganized)

	_, err = h.roster.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, initiativestore.ErrNotFound)
	assert.ErrorIs(t, h.coord.Retire(ctx, created.ID, organizer), initiativestore.ErrNotFound)
}

func TestRemoveUser_PullsFromRostersAndHandsOverInitiatives(t *testing.T) {
	for _, tc := range []struct {
		name string
		tx   TxRunner
	}{
		{"compensating", nil},
		{"transaction", &passTx{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.coord.Tx = tc.tx
			ctx := context.Background()
			admin := h.ledger.put(models.User{Name: "Admin", Role: models.RoleAdmin})
			member, other := h.user(), h.user()

			owned, err := h.coord.Organize(ctx, models.Initiative{Title: "Seed Swap", MaxParticipants: 5}, member)
			require.NoError(t, err)
			elsewhere := h.initiative(5)
			for _, iid := range []primitive.ObjectID{owned.ID, elsewhere} {
				_, err := h.coord.Join(ctx, iid, member)
				require.NoError(t, err)
			}
			_, err = h.coord.Join(ctx, elsewhere, other)
			require.NoError(t, err)

			res, err := h.coord.RemoveUser(ctx, member, admin)
			require.NoError(t, err)
			assert.Equal(t, 2, res.Rosters)
			assert.Equal(t, 1, res.Reassigned)

			_, err = h.ledger.GetByID(ctx, member)
			assert.ErrorIs(t, err, userstore.ErrNotFound)

			for _, iid := range []primitive.ObjectID{owned.ID, elsewhere} {
				in := h.roster.get(iid)
				_, ok := in.Participant(member)
				assert.False(t, ok, "member still on %s", in.Title)
			}
			assert.Equal(t, 1, activeCount(h.roster.get(elsewhere), other))

			assert.Equal(t, admin, h.roster.get(owned.ID).Organizer)
			a := h.ledger.get(admin)
			assert.Equal(t, []primitive.ObjectID{owned.ID}, a.Initiatives.Organized)
			assert.Equal(t, 1, a.Stats.InitiativesOrganized)
		})
	}
}

func TestRemoveUser_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.ledger.put(models.User{Name: "Admin", Role: models.RoleAdmin})

	_, err := h.coord.RemoveUser(ctx, admin, admin)
	assert.ErrorIs(t, err, ErrRemoveSelf)
	_, err = h.ledger.GetByID(ctx, admin)
	assert.NoError(t, err)

	_, err = h.coord.RemoveUser(ctx, primitive.NewObjectID(), admin)
	assert.ErrorIs(t, err, userstore.ErrNotFound)
}
