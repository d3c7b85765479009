// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, flushes traces and tears down the
// MongoDB connection.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Reconciler != nil {
			rt.Reconciler.Stop()
		}
		if rt.JoinLimiter != nil {
			rt.JoinLimiter.Stop()
		}
		if rt.RegisterLimiter != nil {
			rt.RegisterLimiter.Stop()
		}
		if rt.shutdownTracing != nil {
			if err := rt.shutdownTracing(ctx); err != nil {
				logger.Warn("tracing shutdown failed", zap.Error(err))
			}
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting ClimateHub MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
