// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/climatehub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Participation covers join/leave/complete and compensation events.
	Participation string
	// Admin covers registrations, article changes and reconciliation repairs.
	Admin string
}

// Logger writes audit events to MongoDB (via audit.Store) and to zap.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.InitiativeID != nil {
		fields = append(fields, zap.String("initiative_id", event.InitiativeID.Hex()))
	}
	if event.OperationID != "" {
		fields = append(fields, zap.String("op_id", event.OperationID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's mode. The store
// write is detached from ctx cancellation so events emitted while a request
// is failing (timeouts, compensation) still land.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := ModeAll
	switch event.Category {
	case audit.CategoryParticipation:
		setting = l.config.Participation
	case audit.CategoryAdmin, audit.CategoryMaintenance:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.store.Log(wctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func participation(eventType, opID string, userID, initiativeID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:     audit.CategoryParticipation,
		EventType:    eventType,
		UserID:       &userID,
		InitiativeID: &initiativeID,
		OperationID:  opID,
		Success:      true,
	}
}

// --- Participation Events ---

// Joined logs a completed join.
func (l *Logger) Joined(ctx context.Context, opID string, userID, initiativeID primitive.ObjectID, participantCount int) {
	e := participation(audit.EventJoined, opID, userID, initiativeID)
	e.Details = map[string]string{"participant_count": strconv.Itoa(participantCount)}
	l.Log(ctx, e)
}

// Left logs a leave. removed is false when the user was not on the roster.
func (l *Logger) Left(ctx context.Context, opID string, userID, initiativeID primitive.ObjectID, removed bool) {
	e := participation(audit.EventLeft, opID, userID, initiativeID)
	e.Details = map[string]string{"ledger_removed": strconv.FormatBool(removed)}
	l.Log(ctx, e)
}

// Completed logs a completion credited by actorID.
func (l *Logger) Completed(ctx context.Context, opID string, actorID, userID, initiativeID primitive.ObjectID, co2, trees, waste float64) {
	e := participation(audit.EventCompleted, opID, userID, initiativeID)
	e.ActorID = &actorID
	e.Details = map[string]string{
		"co2_reduced":     strconv.FormatFloat(co2, 'f', -1, 64),
		"trees_planted":   strconv.FormatFloat(trees, 'f', -1, 64),
		"waste_collected": strconv.FormatFloat(waste, 'f', -1, 64),
	}
	l.Log(ctx, e)
}

// JoinCompensated logs a join that was rolled back because the user-side
// ledger write failed.
func (l *Logger) JoinCompensated(ctx context.Context, opID string, userID, initiativeID primitive.ObjectID, cause error) {
	e := participation(audit.EventJoinCompensated, opID, userID, initiativeID)
	e.Success = false
	e.FailureReason = errString(cause)
	l.Log(ctx, e)
}

// CompensationFailed logs a join whose rollback also failed. The roster
// now holds a participant the user document does not; reconciliation
// repairs it.
func (l *Logger) CompensationFailed(ctx context.Context, opID string, userID, initiativeID primitive.ObjectID, ledgerErr, compErr error) {
	e := participation(audit.EventCompensationFailed, opID, userID, initiativeID)
	e.Success = false
	e.FailureReason = errString(compErr)
	e.Details = map[string]string{"ledger_error": errString(ledgerErr)}
	l.Log(ctx, e)
}

// Organized logs the creation of an initiative.
func (l *Logger) Organized(ctx context.Context, opID string, organizerID, initiativeID primitive.ObjectID) {
	l.Log(ctx, participation(audit.EventInitiativeOrganized, opID, organizerID, initiativeID))
}

// Retired logs the deletion of an initiative.
func (l *Logger) Retired(ctx context.Context, opID string, actorID, initiativeID primitive.ObjectID, participants int) {
	e := participation(audit.EventInitiativeRetired, opID, actorID, initiativeID)
	e.Details = map[string]string{"participants": strconv.Itoa(participants)}
	l.Log(ctx, e)
}

// --- Admin Events ---

// UserRegistered logs a new account.
func (l *Logger) UserRegistered(ctx context.Context, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// ArticleChanged logs an article create, update or delete.
func (l *Logger) ArticleChanged(ctx context.Context, eventType string, actorID, articleID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"article_id": articleID.Hex()},
	})
}

// UserUpdated logs an admin edit of another account. fields names what
// changed.
func (l *Logger) UserUpdated(ctx context.Context, actorID, userID primitive.ObjectID, fields []string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserUpdated,
		UserID:    &userID,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"fields": strings.Join(fields, ",")},
	})
}

// UserRemoved logs an account deletion and the roster cleanup it caused.
func (l *Logger) UserRemoved(ctx context.Context, opID string, actorID, userID primitive.ObjectID, rosters, reassigned int) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventUserRemoved,
		UserID:      &userID,
		ActorID:     &actorID,
		OperationID: opID,
		Success:     true,
		Details: map[string]string{
			"rosters":    strconv.Itoa(rosters),
			"reassigned": strconv.Itoa(reassigned),
		},
	})
}

// CommentModerated logs an admin update or deletion of a comment.
func (l *Logger) CommentModerated(ctx context.Context, eventType string, actorID, authorID, commentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    &authorID,
		ActorID:   &actorID,
		Success:   true,
		Details:   map[string]string{"comment_id": commentID.Hex()},
	})
}

// --- Maintenance Events ---

// ReconcileRepaired logs a user whose joined list or counter was rebuilt
// from the initiative rosters.
func (l *Logger) ReconcileRepaired(ctx context.Context, userID primitive.ObjectID, beforeCount, afterCount int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMaintenance,
		EventType: audit.EventReconcileRepaired,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"before": strconv.Itoa(beforeCount),
			"after":  strconv.Itoa(afterCount),
		},
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
