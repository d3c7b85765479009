// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"github.com/dalemusser/climatehub/internal/app/system/ratelimit"
	"github.com/dalemusser/climatehub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE hands DBDeps to each hook by value, so the pieces built during
// Startup live behind the Runtime pointer allocated in ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Runtime *Runtime
}

// Runtime holds services built in Startup and released in Shutdown.
type Runtime struct {
	Audit       *auditlog.Logger
	Coordinator *participation.Coordinator
	Reconciler  *workers.Reconcile

	JoinLimiter     *ratelimit.Limiter
	RegisterLimiter *ratelimit.Limiter

	shutdownTracing func(context.Context) error
}
