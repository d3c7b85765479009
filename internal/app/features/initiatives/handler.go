// internal/app/features/initiatives/handler.go
package initiatives

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// errNotFound is returned for malformed ids so they read the same as
// unknown ones.
var errNotFound = apperr.NotFound("Initiative not found")

// Handler owns the initiative routes.
type Handler struct {
	Initiatives *initiativestore.Store
	Users       *userstore.Store
	Coord       *participation.Coordinator
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

// NewHandler constructs an initiatives Handler. Membership changes go
// through coord.
func NewHandler(db *mongo.Database, coord *participation.Coordinator, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Initiatives: initiativestore.New(db),
		Users:       userstore.New(db),
		Coord:       coord,
		ErrLog:      errLog,
		Log:         logger,
	}
}

func parseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, errNotFound
	}
	return id, nil
}
