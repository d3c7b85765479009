// internal/app/features/systemusers/handler.go
package systemusers

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	commentstore "github.com/dalemusser/climatehub/internal/app/store/comments"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns admin account management. Deletion goes through Coord so
// the account leaves every roster it is on.
type Handler struct {
	Users    *userstore.Store
	Comments *commentstore.Store
	Coord    *participation.Coordinator
	Audit    *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a system users Handler. audit may be nil.
func NewHandler(db *mongo.Database, coord *participation.Coordinator, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Comments: commentstore.New(db),
		Coord:    coord,
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}
