// internal/app/features/comments/handler.go
package comments

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	articlestore "github.com/dalemusser/climatehub/internal/app/store/articles"
	commentstore "github.com/dalemusser/climatehub/internal/app/store/comments"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns member comments, article comments and their moderation.
type Handler struct {
	Comments *commentstore.Store
	Users    *userstore.Store
	Articles *articlestore.Store
	Audit    *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a comments Handler. audit may be nil.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Comments: commentstore.New(db),
		Users:    userstore.New(db),
		Articles: articlestore.New(db),
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}
