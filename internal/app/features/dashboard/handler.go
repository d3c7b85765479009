// internal/app/features/dashboard/handler.go
package dashboard

import (
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users       *userstore.Store
	Initiatives *initiativestore.Store
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Initiatives: initiativestore.New(db),
		ErrLog:      errLog,
		Log:         logger,
	}
}
