package participation

import (
	"context"
	"errors"
	"sync"
	"time"

	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errTransient = errors.New("connection reset by peer")

// fakeRoster mirrors the initiative store's roster semantics in memory.
type fakeRoster struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Initiative

	removeErr error
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{docs: map[primitive.ObjectID]*models.Initiative{}}
}

func (f *fakeRoster) put(in models.Initiative) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.ID.IsZero() {
		in.ID = primitive.NewObjectID()
	}
	if in.Participants == nil {
		in.Participants = []models.Participant{}
	}
	f.docs[in.ID] = &in
	return in.ID
}

func (f *fakeRoster) get(id primitive.ObjectID) models.Initiative {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.docs[id])
}

func clone(in *models.Initiative) models.Initiative {
	out := *in
	out.Participants = append([]models.Participant{}, in.Participants...)
	return out
}

func (f *fakeRoster) GetByID(_ context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.docs[id]
	if !ok {
		return nil, initiativestore.ErrNotFound
	}
	out := clone(in)
	return &out, nil
}

func (f *fakeRoster) Create(_ context.Context, in models.Initiative) (models.Initiative, error) {
	in.ID = primitive.NewObjectID()
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = models.DefaultMaxParticipants
	}
	in.Participants = []models.Participant{}
	f.put(in)
	return in, nil
}

func (f *fakeRoster) Delete(_ context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.docs[id]
	if !ok {
		return nil, initiativestore.ErrNotFound
	}
	delete(f.docs, id)
	return in, nil
}

func (f *fakeRoster) AddParticipant(_ context.Context, id, userID primitive.ObjectID, joinedAt time.Time) (*models.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.docs[id]
	if !ok {
		return nil, initiativestore.ErrNotFound
	}
	if in.IsFull() {
		return nil, initiativestore.ErrFull
	}
	if in.HasActiveParticipant(userID) {
		return nil, initiativestore.ErrAlreadyJoined
	}
	in.Participants = append(in.Participants, models.Participant{
		User: userID, JoinedAt: joinedAt, Status: models.ParticipationJoined,
	})
	out := clone(in)
	return &out, nil
}

func (f *fakeRoster) RemoveParticipant(_ context.Context, id, userID primitive.ObjectID) (*models.Initiative, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return nil, false, f.removeErr
	}
	in, ok := f.docs[id]
	if !ok {
		return nil, false, initiativestore.ErrNotFound
	}
	kept := in.Participants[:0:0]
	removed := false
	for _, p := range in.Participants {
		if p.User == userID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	in.Participants = kept
	out := clone(in)
	return &out, removed, nil
}

func (f *fakeRoster) SetParticipantStatus(_ context.Context, id, userID primitive.ObjectID, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.docs[id]
	if !ok {
		return false, nil
	}
	for i, p := range in.Participants {
		if p.User == userID && models.IsActiveParticipation(p.Status) {
			in.Participants[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoster) FindByParticipant(_ context.Context, userID primitive.ObjectID) ([]models.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Initiative{}
	for _, in := range f.docs {
		if _, ok := in.Participant(userID); ok {
			out = append(out, clone(in))
		}
	}
	return out, nil
}

func (f *fakeRoster) FindByOrganizer(_ context.Context, userID primitive.ObjectID) ([]models.Initiative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Initiative{}
	for _, in := range f.docs {
		if in.Organizer == userID {
			out = append(out, clone(in))
		}
	}
	return out, nil
}

func (f *fakeRoster) SetOrganizer(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.docs[id]
	if !ok {
		return initiativestore.ErrNotFound
	}
	in.Organizer = userID
	return nil
}

// fakeLedger mirrors the user store's guarded ledger updates in memory.
type fakeLedger struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	order []primitive.ObjectID

	// joinFailures makes the next N RecordJoin calls fail with joinErr.
	joinFailures int
	joinErr      error
	joinCalls    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{users: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeLedger) put(u models.User) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	f.users[u.ID] = &u
	f.order = append(f.order, u.ID)
	return u.ID
}

func (f *fakeLedger) get(id primitive.ObjectID) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.users[id]
	u.Initiatives.Joined = append([]models.JoinedInitiative{}, u.Initiatives.Joined...)
	return u
}

func (f *fakeLedger) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	out := *u
	out.Initiatives.Joined = append([]models.JoinedInitiative{}, u.Initiatives.Joined...)
	return &out, nil
}

func (f *fakeLedger) FirstAdmin(_ context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		if u, ok := f.users[id]; ok && u.Role == models.RoleAdmin {
			out := *u
			return &out, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (f *fakeLedger) ForEach(ctx context.Context, fn func(models.User) error) error {
	f.mu.Lock()
	ids := append([]primitive.ObjectID{}, f.order...)
	f.mu.Unlock()
	for _, id := range ids {
		u, err := f.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if err := fn(*u); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLedger) RecordJoin(_ context.Context, userID, initiativeID primitive.ObjectID, joinedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls++
	if f.joinFailures > 0 {
		f.joinFailures--
		return false, f.joinErr
	}
	u, ok := f.users[userID]
	if !ok {
		return false, userstore.ErrNotFound
	}
	for _, j := range u.Initiatives.Joined {
		if j.Initiative == initiativeID {
			return false, nil
		}
	}
	u.Initiatives.Joined = append(u.Initiatives.Joined, models.JoinedInitiative{
		Initiative: initiativeID, JoinedAt: joinedAt, Status: models.ParticipationJoined,
	})
	u.Stats.InitiativesJoined++
	return true, nil
}

func (f *fakeLedger) RecordLeave(_ context.Context, userID, initiativeID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	kept := u.Initiatives.Joined[:0:0]
	for _, j := range u.Initiatives.Joined {
		if j.Initiative != initiativeID {
			kept = append(kept, j)
		}
	}
	if len(kept) == len(u.Initiatives.Joined) {
		return false, nil
	}
	u.Initiatives.Joined = kept
	u.Stats.InitiativesJoined--
	return true, nil
}

func (f *fakeLedger) RecordCompletion(_ context.Context, userID, initiativeID primitive.ObjectID, c userstore.Completion) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, userstore.ErrNotFound
	}
	for i, j := range u.Initiatives.Joined {
		if j.Initiative != initiativeID {
			continue
		}
		switch j.Status {
		case models.ParticipationCompleted:
			return false, nil
		case models.ParticipationCancelled:
			continue
		}
		u.Initiatives.Joined[i].Status = models.ParticipationCompleted
		u.Stats.InitiativesCompleted++
		u.Stats.CO2Reduced += c.CO2Reduced
		u.Stats.TreesPlanted += c.TreesPlanted
		u.Stats.WasteCollected += c.WasteCollected
		return true, nil
	}
	return false, userstore.ErrNotJoined
}

func (f *fakeLedger) RecordOrganized(_ context.Context, userID, initiativeID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, userstore.ErrNotFound
	}
	for _, id := range u.Initiatives.Organized {
		if id == initiativeID {
			return false, nil
		}
	}
	u.Initiatives.Organized = append(u.Initiatives.Organized, initiativeID)
	u.Stats.InitiativesOrganized++
	return true, nil
}

func (f *fakeLedger) RecordUnorganized(_ context.Context, userID, initiativeID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	for i, id := range u.Initiatives.Organized {
		if id == initiativeID {
			u.Initiatives.Organized = append(u.Initiatives.Organized[:i:i], u.Initiatives.Organized[i+1:]...)
			u.Stats.InitiativesOrganized--
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ReplaceJoined(_ context.Context, userID primitive.ObjectID, expect, joined []models.JoinedInitiative) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || !sameJoined(u.Initiatives.Joined, expect) {
		return false, nil
	}
	u.Initiatives.Joined = append([]models.JoinedInitiative{}, joined...)
	u.Stats.InitiativesJoined = len(joined)
	return true, nil
}

func (f *fakeLedger) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return userstore.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// passTx runs fn directly, standing in for a deployment with transactions.
type passTx struct{ calls int }

func (p *passTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}
