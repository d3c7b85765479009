// internal/app/features/users/handler.go
package users

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns account registration and per-user stats.
type Handler struct {
	Users       *userstore.Store
	Initiatives *initiativestore.Store
	Audit       *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

// NewHandler constructs a users Handler. audit may be nil.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Initiatives: initiativestore.New(db),
		Audit:       audit,
		ErrLog:      errLog,
		Log:         logger,
	}
}
