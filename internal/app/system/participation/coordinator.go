// Package participation owns every write that touches both an initiative
// roster and a user's joined list or stats. Handlers call the Coordinator;
// they never use the roster or ledger store methods directly.
package participation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/app/system/tracing"
	"github.com/dalemusser/climatehub/internal/app/system/txn"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrProfileIncomplete is returned when a join could not be recorded on
	// the user and the roster entry was rolled back.
	ErrProfileIncomplete = apperr.Validation("Unable to join initiative: user profile is incomplete")
	// ErrNoOrganizer is returned by Organize when no organizer was given and
	// no admin account exists.
	ErrNoOrganizer = apperr.Validation("No organizer available")
	// ErrRemoveSelf is returned when an admin tries to remove their own
	// account.
	ErrRemoveSelf = apperr.Validation("You cannot delete your own account")
)

// Roster is the initiative side: the participants array and the documents
// that carry it.
type Roster interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error)
	Create(ctx context.Context, in models.Initiative) (models.Initiative, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error)
	AddParticipant(ctx context.Context, id, userID primitive.ObjectID, joinedAt time.Time) (*models.Initiative, error)
	RemoveParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Initiative, bool, error)
	SetParticipantStatus(ctx context.Context, id, userID primitive.ObjectID, status string) (bool, error)
	FindByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Initiative, error)
	FindByOrganizer(ctx context.Context, userID primitive.ObjectID) ([]models.Initiative, error)
	SetOrganizer(ctx context.Context, id, userID primitive.ObjectID) error
}

// Ledger is the user side: initiatives.joined, initiatives.organized and
// stats.*.
type Ledger interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FirstAdmin(ctx context.Context) (*models.User, error)
	ForEach(ctx context.Context, fn func(models.User) error) error
	RecordJoin(ctx context.Context, userID, initiativeID primitive.ObjectID, joinedAt time.Time) (bool, error)
	RecordLeave(ctx context.Context, userID, initiativeID primitive.ObjectID) (bool, error)
	RecordCompletion(ctx context.Context, userID, initiativeID primitive.ObjectID, c userstore.Completion) (bool, error)
	RecordOrganized(ctx context.Context, userID, initiativeID primitive.ObjectID) (bool, error)
	RecordUnorganized(ctx context.Context, userID, initiativeID primitive.ObjectID) (bool, error)
	ReplaceJoined(ctx context.Context, userID primitive.ObjectID, expect, joined []models.JoinedInitiative) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TxRunner runs fn in a multi-document transaction or returns
// txn.ErrNotSupported.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// RetryPolicy bounds the ledger write retries on the compensating path.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetry is used when a Coordinator is built with New.
var DefaultRetry = RetryPolicy{
	MaxTries:        4,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

var tracer = tracing.Tracer("participation")

// Coordinator keeps rosters and user ledgers consistent.
//
// When Tx runs transactions, each operation's roster and ledger writes
// commit together. Otherwise the roster write goes first (it is the
// authoritative side), the ledger write is retried with backoff, and a join
// whose ledger write keeps failing is rolled back. The Reconciler closes
// whatever window remains.
type Coordinator struct {
	Roster Roster
	Ledger Ledger
	Tx     TxRunner
	Audit  *auditlog.Logger
	Log    *zap.Logger
	Retry  RetryPolicy

	// Now is overridable in tests.
	Now func() time.Time
}

// New returns a Coordinator with DefaultRetry. tx may be nil to always use
// the compensating path; audit may be nil.
func New(roster Roster, ledger Ledger, tx TxRunner, audit *auditlog.Logger, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		Roster: roster,
		Ledger: ledger,
		Tx:     tx,
		Audit:  audit,
		Log:    log,
		Retry:  DefaultRetry,
	}
}

// JoinResult is returned by Join.
type JoinResult struct {
	Initiative       *models.Initiative
	ParticipantCount int
}

// Join adds userID to the initiative's roster and records the join on the
// user.
func (c *Coordinator) Join(ctx context.Context, initiativeID, userID primitive.ObjectID) (res *JoinResult, err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.join", opID, initiativeID, userID)
	defer func() { end(span, err) }()

	if _, err := c.Roster.GetByID(ctx, initiativeID); err != nil {
		return nil, err
	}
	if _, err := c.Ledger.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	joinedAt := c.now()

	var in *models.Initiative
	err = c.inTx(ctx, func(ctx context.Context) error {
		added, err := c.Roster.AddParticipant(ctx, initiativeID, userID, joinedAt)
		if err != nil {
			return err
		}
		if _, err := c.Ledger.RecordJoin(ctx, userID, initiativeID, joinedAt); err != nil {
			return err
		}
		in = added
		return nil
	})
	if errors.Is(err, txn.ErrNotSupported) {
		in, err = c.joinCompensating(ctx, opID, initiativeID, userID, joinedAt)
	}
	if err != nil {
		return nil, err
	}

	c.Audit.Joined(ctx, opID, userID, initiativeID, in.ParticipantCount())
	return &JoinResult{Initiative: in, ParticipantCount: in.ParticipantCount()}, nil
}

func (c *Coordinator) joinCompensating(ctx context.Context, opID string, initiativeID, userID primitive.ObjectID, joinedAt time.Time) (*models.Initiative, error) {
	in, err := c.Roster.AddParticipant(ctx, initiativeID, userID, joinedAt)
	if err != nil {
		return nil, err
	}

	ledgerErr := c.retry(ctx, "record join", func() error {
		_, err := c.Ledger.RecordJoin(ctx, userID, initiativeID, joinedAt)
		return err
	})
	if ledgerErr == nil {
		return in, nil
	}

	log := c.Log.With(
		zap.String("op_id", opID),
		zap.String("initiative_id", initiativeID.Hex()),
		zap.String("user_id", userID.Hex()),
	)

	// The request context may already be done; the rollback must still run.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, _, compErr := c.Roster.RemoveParticipant(cctx, initiativeID, userID); compErr != nil {
		log.Error("join compensation failed; roster holds an unrecorded participant",
			zap.NamedError("ledger_error", ledgerErr),
			zap.NamedError("compensation_error", compErr),
		)
		c.Audit.CompensationFailed(cctx, opID, userID, initiativeID, ledgerErr, compErr)
		return nil, apperr.Internal("Server error", errors.Join(ledgerErr, compErr))
	}

	log.Warn("join rolled back after ledger write failed", zap.Error(ledgerErr))
	c.Audit.JoinCompensated(cctx, opID, userID, initiativeID, ledgerErr)
	return nil, ErrProfileIncomplete
}

// LeaveResult is returned by Leave.
type LeaveResult struct {
	ParticipantCount int
	// Removed is false when the user was not on the roster.
	Removed bool
}

// Leave removes userID from the roster and the user's joined list. It is
// idempotent: leaving twice succeeds and never drives the counter below
// zero.
func (c *Coordinator) Leave(ctx context.Context, initiativeID, userID primitive.ObjectID) (res *LeaveResult, err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.leave", opID, initiativeID, userID)
	defer func() { end(span, err) }()

	var (
		in      *models.Initiative
		removed bool
	)
	err = c.inTx(ctx, func(ctx context.Context) error {
		var err error
		in, removed, err = c.Roster.RemoveParticipant(ctx, initiativeID, userID)
		if err != nil {
			return err
		}
		_, err = c.Ledger.RecordLeave(ctx, userID, initiativeID)
		return err
	})
	if errors.Is(err, txn.ErrNotSupported) {
		in, removed, err = c.Roster.RemoveParticipant(ctx, initiativeID, userID)
		if err != nil {
			return nil, err
		}
		if lerr := c.retry(ctx, "record leave", func() error {
			_, err := c.Ledger.RecordLeave(ctx, userID, initiativeID)
			return err
		}); lerr != nil {
			// The roster is authoritative; reconciliation drops the stale entry.
			c.Log.Error("leave not recorded on user",
				zap.String("op_id", opID),
				zap.String("initiative_id", initiativeID.Hex()),
				zap.String("user_id", userID.Hex()),
				zap.Error(lerr),
			)
		}
	} else if err != nil {
		return nil, err
	}

	c.Audit.Left(ctx, opID, userID, initiativeID, removed)
	return &LeaveResult{ParticipantCount: in.ParticipantCount(), Removed: removed}, nil
}

// CompleteResult is returned by Complete.
type CompleteResult struct {
	// Applied is false when the entry was already completed.
	Applied bool
	Stats   models.UserStats
}

// Complete marks userID's participation completed and credits the impact
// delta. actorID is the organizer or admin recording it.
func (c *Coordinator) Complete(ctx context.Context, initiativeID, userID, actorID primitive.ObjectID, d impact.Delta) (res *CompleteResult, err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.complete", opID, initiativeID, userID)
	defer func() { end(span, err) }()

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.Roster.GetByID(ctx, initiativeID); err != nil {
		return nil, err
	}

	comp := userstore.Completion{
		CO2Reduced:     d.CO2Reduced,
		TreesPlanted:   d.TreesPlanted,
		WasteCollected: d.WasteCollected,
	}
	var applied bool
	err = c.inTx(ctx, func(ctx context.Context) error {
		var err error
		applied, err = c.Ledger.RecordCompletion(ctx, userID, initiativeID, comp)
		if err != nil {
			return err
		}
		_, err = c.Roster.SetParticipantStatus(ctx, initiativeID, userID, models.ParticipationCompleted)
		return err
	})
	if errors.Is(err, txn.ErrNotSupported) {
		applied, err = c.Ledger.RecordCompletion(ctx, userID, initiativeID, comp)
		if err != nil {
			return nil, err
		}
		if serr := c.retry(ctx, "mark roster completed", func() error {
			_, err := c.Roster.SetParticipantStatus(ctx, initiativeID, userID, models.ParticipationCompleted)
			return err
		}); serr != nil {
			c.Log.Error("roster status not updated after completion",
				zap.String("op_id", opID),
				zap.String("initiative_id", initiativeID.Hex()),
				zap.String("user_id", userID.Hex()),
				zap.Error(serr),
			)
		}
	} else if err != nil {
		return nil, err
	}

	u, err := c.Ledger.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if applied {
		c.Audit.Completed(ctx, opID, actorID, userID, initiativeID, d.CO2Reduced, d.TreesPlanted, d.WasteCollected)
	}
	return &CompleteResult{Applied: applied, Stats: u.Stats}, nil
}

// Organize creates an initiative owned by organizerID and records it on the
// organizer. A zero organizerID falls back to the first admin account.
func (c *Coordinator) Organize(ctx context.Context, in models.Initiative, organizerID primitive.ObjectID) (out *models.Initiative, err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.organize", opID, primitive.NilObjectID, organizerID)
	defer func() { end(span, err) }()

	if organizerID.IsZero() {
		admin, err := c.Ledger.FirstAdmin(ctx)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrNoOrganizer
		}
		if err != nil {
			return nil, err
		}
		organizerID = admin.ID
	} else if _, err := c.Ledger.GetByID(ctx, organizerID); err != nil {
		return nil, err
	}
	in.Organizer = organizerID

	var created models.Initiative
	err = c.inTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = c.Roster.Create(ctx, in); err != nil {
			return err
		}
		_, err = c.Ledger.RecordOrganized(ctx, organizerID, created.ID)
		return err
	})
	if errors.Is(err, txn.ErrNotSupported) {
		if created, err = c.Roster.Create(ctx, in); err != nil {
			return nil, err
		}
		if lerr := c.retry(ctx, "record organized", func() error {
			_, err := c.Ledger.RecordOrganized(ctx, organizerID, created.ID)
			return err
		}); lerr != nil {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if _, derr := c.Roster.Delete(cctx, created.ID); derr != nil {
				c.Log.Error("organize rollback failed",
					zap.String("op_id", opID),
					zap.String("initiative_id", created.ID.Hex()),
					zap.NamedError("ledger_error", lerr),
					zap.NamedError("rollback_error", derr),
				)
			}
			return nil, apperr.Wrap(lerr, "Unable to create initiative")
		}
	} else if err != nil {
		return nil, err
	}

	c.Audit.Organized(ctx, opID, organizerID, created.ID)
	return &created, nil
}

// Retire deletes an initiative and removes it from every participant's
// joined list and from the organizer's organized list.
func (c *Coordinator) Retire(ctx context.Context, initiativeID, actorID primitive.ObjectID) (err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.retire", opID, initiativeID, actorID)
	defer func() { end(span, err) }()

	var gone *models.Initiative
	err = c.inTx(ctx, func(ctx context.Context) error {
		var err error
		if gone, err = c.Roster.Delete(ctx, initiativeID); err != nil {
			return err
		}
		for _, p := range gone.Participants {
			if _, err := c.Ledger.RecordLeave(ctx, p.User, initiativeID); err != nil {
				return err
			}
		}
		_, err = c.Ledger.RecordUnorganized(ctx, gone.Organizer, initiativeID)
		return err
	})
	if errors.Is(err, txn.ErrNotSupported) {
		if gone, err = c.Roster.Delete(ctx, initiativeID); err != nil {
			return err
		}
		for _, p := range gone.Participants {
			uid := p.User
			if lerr := c.retry(ctx, "record leave", func() error {
				_, err := c.Ledger.RecordLeave(ctx, uid, initiativeID)
				return err
			}); lerr != nil {
				c.Log.Error("retired initiative left on user",
					zap.String("op_id", opID),
					zap.String("initiative_id", initiativeID.Hex()),
					zap.String("user_id", uid.Hex()),
					zap.Error(lerr),
				)
			}
		}
		if lerr := c.retry(ctx, "record unorganized", func() error {
			_, err := c.Ledger.RecordUnorganized(ctx, gone.Organizer, initiativeID)
			return err
		}); lerr != nil {
			c.Log.Error("retired initiative left on organizer",
				zap.String("op_id", opID),
				zap.String("initiative_id", initiativeID.Hex()),
				zap.Error(lerr),
			)
		}
	} else if err != nil {
		return err
	}

	c.Audit.Retired(ctx, opID, actorID, initiativeID, len(gone.Participants))
	return nil
}

// RemovalResult is returned by RemoveUser.
type RemovalResult struct {
	Rosters    int // rosters the user was pulled from
	Reassigned int // initiatives handed to the acting admin
}

// RemoveUser deletes an account. The user is pulled from every roster that
// mentions them and the initiatives they organized pass to actorID, so no
// initiative is left pointing at a missing user.
func (c *Coordinator) RemoveUser(ctx context.Context, userID, actorID primitive.ObjectID) (res *RemovalResult, err error) {
	opID := uuid.NewString()
	ctx, span := c.start(ctx, "participation.remove_user", opID, primitive.NilObjectID, userID)
	defer func() { end(span, err) }()

	if userID == actorID {
		return nil, ErrRemoveSelf
	}
	if _, err := c.Ledger.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	joined, err := c.Roster.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	organized, err := c.Roster.FindByOrganizer(ctx, userID)
	if err != nil {
		return nil, err
	}

	res = &RemovalResult{}
	err = c.inTx(ctx, func(ctx context.Context) error {
		*res = RemovalResult{}
		for _, in := range joined {
			if _, _, err := c.Roster.RemoveParticipant(ctx, in.ID, userID); err != nil {
				return err
			}
			res.Rosters++
		}
		for _, in := range organized {
			if err := c.Roster.SetOrganizer(ctx, in.ID, actorID); err != nil {
				return err
			}
			if _, err := c.Ledger.RecordOrganized(ctx, actorID, in.ID); err != nil {
				return err
			}
			res.Reassigned++
		}
		return c.Ledger.Delete(ctx, userID)
	})
	if errors.Is(err, txn.ErrNotSupported) {
		*res = RemovalResult{}
		for _, in := range joined {
			_, _, err := c.Roster.RemoveParticipant(ctx, in.ID, userID)
			if errors.Is(err, initiativestore.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			res.Rosters++
		}
		for _, in := range organized {
			err := c.Roster.SetOrganizer(ctx, in.ID, actorID)
			if errors.Is(err, initiativestore.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			iid := in.ID
			if lerr := c.retry(ctx, "record organized", func() error {
				_, err := c.Ledger.RecordOrganized(ctx, actorID, iid)
				return err
			}); lerr != nil {
				c.Log.Error("reassigned initiative missing from new organizer",
					zap.String("op_id", opID),
					zap.String("initiative_id", iid.Hex()),
					zap.String("organizer_id", actorID.Hex()),
					zap.Error(lerr),
				)
			}
			res.Reassigned++
		}
		if err := c.Ledger.Delete(ctx, userID); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	c.Audit.UserRemoved(ctx, opID, actorID, userID, res.Rosters, res.Reassigned)
	return res, nil
}

func (c *Coordinator) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.Tx == nil {
		return txn.ErrNotSupported
	}
	return c.Tx.Run(ctx, fn)
}

// retry runs a ledger-side write with exponential backoff. Errors that
// cannot improve on retry (missing documents, validation) stop it early.
func (c *Coordinator) retry(ctx context.Context, op string, fn func() error) error {
	policy := c.Retry
	if policy.MaxTries == 0 {
		policy = DefaultRetry
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.Log.Warn("write failed; retrying",
				zap.String("operation", op),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
		}),
	)
	return err
}

// documentValidationFailure is the server code for a write rejected by a
// collection's $jsonSchema validator.
const documentValidationFailure = 121

func retryable(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(documentValidationFailure) {
		return false
	}
	switch apperr.KindOf(err) {
	case apperr.KindInternal, apperr.KindUnavailable:
		return true
	}
	return false
}

// now is truncated to BSON's millisecond precision so the roster and
// ledger copies of joined_at compare equal after a round trip.
func (c *Coordinator) now() time.Time {
	t := time.Now()
	if c.Now != nil {
		t = c.Now()
	}
	return t.UTC().Truncate(time.Millisecond)
}

func (c *Coordinator) start(ctx context.Context, name, opID string, initiativeID, userID primitive.ObjectID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("op_id", opID),
		attribute.String("initiative_id", initiativeID.Hex()),
		attribute.String("user_id", userID.Hex()),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
	}
	span.End()
}
