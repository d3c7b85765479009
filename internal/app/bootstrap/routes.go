// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	articlesfeature "github.com/dalemusser/climatehub/internal/app/features/articles"
	auditlogfeature "github.com/dalemusser/climatehub/internal/app/features/auditlog"
	commentsfeature "github.com/dalemusser/climatehub/internal/app/features/comments"
	communityfeature "github.com/dalemusser/climatehub/internal/app/features/community"
	dashboardfeature "github.com/dalemusser/climatehub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/climatehub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/climatehub/internal/app/features/health"
	initiativesfeature "github.com/dalemusser/climatehub/internal/app/features/initiatives"
	systemusersfeature "github.com/dalemusser/climatehub/internal/app/features/systemusers"
	usersfeature "github.com/dalemusser/climatehub/internal/app/features/users"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// ClimateHub is a JSON API. Bearer tokens are verified on every request and
// the caller's role is refreshed from the users collection, so role changes
// and deleted accounts take effect immediately.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Coordinator == nil {
		return nil, errors.New("build handler: startup did not complete")
	}

	verifier, err := auth.NewVerifier(appCfg.JWTSecret, logger)
	if err != nil {
		logger.Error("token verifier init failed", zap.Error(err))
		return nil, err
	}
	verifier = verifier.WithFetcher(userstore.NewFetcher(deps.MongoDatabase))

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	if len(appCfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Total-Count", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Global auth middleware: loads the bearer user into context if present.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(verifier.LoadBearerUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		// Initiatives and participation
		initiativesHandler := initiativesfeature.NewHandler(deps.MongoDatabase, rt.Coordinator, errLog, logger)
		api.Route("/initiatives", func(ir chi.Router) {
			initiativesHandler.MountRoutes(ir, rt.JoinLimiter)
		})

		// Dashboard, profile and personal stats
		dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

		commentsHandler := commentsfeature.NewHandler(deps.MongoDatabase, rt.Audit, errLog, logger)

		// Registration, per-user stats and the caller's own comments
		usersHandler := usersfeature.NewHandler(deps.MongoDatabase, rt.Audit, errLog, logger)
		usersRouter := usersfeature.Routes(usersHandler, rt.RegisterLimiter)
		usersRouter.Mount("/comments", commentsfeature.MemberRoutes(commentsHandler))
		api.Mount("/users", usersRouter)

		// Articles (admin-managed) and comments on them
		articlesHandler := articlesfeature.NewHandler(deps.MongoDatabase, rt.Audit, errLog, logger)
		articlesRouter := articlesfeature.Routes(articlesHandler)
		commentsfeature.MountArticleRoutes(articlesRouter, commentsHandler)
		api.Mount("/articles", articlesRouter)

		// Public community totals
		communityHandler := communityfeature.NewHandler(deps.MongoDatabase, logger)
		api.Mount("/public", communityfeature.Routes(communityHandler))

		// Audit trail (admin only)
		auditHandler := auditlogfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		api.Mount("/admin/audit", auditlogfeature.Routes(auditHandler))

		// Account management and comment moderation (admin only)
		systemUsersHandler := systemusersfeature.NewHandler(deps.MongoDatabase, rt.Coordinator, rt.Audit, errLog, logger)
		api.Mount("/admin/users", systemusersfeature.Routes(systemUsersHandler))
		api.Mount("/admin/comments", commentsfeature.AdminRoutes(commentsHandler))
	})

	return r, nil
}
