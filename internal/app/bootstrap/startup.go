// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/climatehub/internal/app/store/audit"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"github.com/dalemusser/climatehub/internal/app/system/ratelimit"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/app/system/tracing"
	"github.com/dalemusser/climatehub/internal/app/system/txn"
	"github.com/dalemusser/climatehub/internal/app/system/workers"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It configures persistence timeouts and tracing, builds the participation
// coordinator and its reconcile worker, creates the rate limiters and makes
// sure the configured admin account exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime == nil {
		return errors.New("startup: runtime not initialized")
	}
	rt := deps.Runtime

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	shutdown, err := tracing.Setup(ctx, appCfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	rt.shutdownTracing = shutdown

	db := deps.MongoDatabase
	roster := initiativestore.New(db)
	ledger := userstore.New(db)

	rt.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Participation: appCfg.AuditLogParticipation,
		Admin:         appCfg.AuditLogAdmin,
	})

	var tx participation.TxRunner
	if deps.MongoClient != nil {
		runner := txn.New(deps.MongoClient, appCfg.TxnMode == "auto", logger)
		logger.Info("participation consistency mode",
			zap.String("txn_mode", appCfg.TxnMode),
			zap.Bool("transactions", runner.Enabled()))
		tx = runner
	} else {
		logger.Info("participation consistency mode", zap.Bool("transactions", false))
	}
	rt.Coordinator = participation.New(roster, ledger, tx, rt.Audit, logger)

	if appCfg.ReconcileInterval > 0 {
		pass := participation.NewReconciler(roster, ledger, rt.Audit, logger)
		rt.Reconciler = workers.NewReconcile(pass, logger, appCfg.ReconcileInterval, appCfg.ReconcileInterval/2)
		rt.Reconciler.Start()
	}

	rt.JoinLimiter = ratelimit.New(appCfg.JoinRateLimit, appCfg.JoinRateBurst)
	rt.RegisterLimiter = ratelimit.New(appCfg.RegisterRateLimit, appCfg.RegisterRateLimit)

	return ensureAdmin(ctx, db, appCfg.AdminEmail, appCfg.AdminPassword, logger)
}

// ensureAdmin makes sure the account named by email holds the admin role.
// An existing account is promoted. When no account exists and password is
// set, one is created. A blank email skips the check.
func ensureAdmin(ctx context.Context, db *mongo.Database, email, password string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "ensure admin")
	defer cancel()

	users := userstore.New(db)
	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin {
			return nil
		}
		if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		logger.Info("promoted existing user to admin", zap.String("email", u.Email))
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return fmt.Errorf("look up admin: %w", err)
	}

	if password == "" {
		logger.Warn("admin account not found and no admin_password set; skipping creation",
			zap.String("email", email))
		return nil
	}

	created, err := users.Create(ctx, models.User{
		Name:  "Administrator",
		Email: email,
		Role:  models.RoleAdmin,
	}, password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("created admin account", zap.String("email", created.Email))
	return nil
}
