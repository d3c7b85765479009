// internal/app/features/articles/handler.go
package articles

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	articlestore "github.com/dalemusser/climatehub/internal/app/store/articles"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all article handlers.
type Handler struct {
	Store  *articlestore.Store
	Audit  *auditlog.Logger
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs an articles Handler. audit may be nil.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  articlestore.New(db),
		Audit:  audit,
		ErrLog: errLog,
		Log:    logger,
	}
}
