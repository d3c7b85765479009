// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ClimateHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: CLIMATEHUB_MONGO_URI, CLIMATEHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "climatehub", Desc: "MongoDB database name"},
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret used to verify bearer tokens (at least 32 bytes)"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated list of allowed browser origins"},

	// Consistency and background repair
	{Name: "txn_mode", Default: "auto", Desc: "Multi-document transactions: 'auto' or 'off'"},
	{Name: "reconcile_interval", Default: "10m", Desc: "Time between reconciliation passes (0 disables)"},

	// Rate limiting
	{Name: "join_rate_limit", Default: 30, Desc: "Join/leave requests per user per minute"},
	{Name: "join_rate_burst", Default: 10, Desc: "Join/leave burst size"},
	{Name: "register_rate_limit", Default: 10, Desc: "Registrations per client per minute"},

	// Persistence timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads and writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for lists and read models"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for multi-step participation operations"},

	// Audit logging settings
	{Name: "audit_log_participation", Default: "all", Desc: "Participation event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Tracing
	{Name: "otel_endpoint", Default: "", Desc: "OTLP/HTTP trace endpoint URL (blank disables tracing)"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin account (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password used when the admin account has to be created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CLIMATEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLIMATEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),
		JWTSecret:     appValues.String("jwt_secret"),
		CORSOrigins:   splitList(appValues.String("cors_origins")),

		TxnMode:           strings.ToLower(strings.TrimSpace(appValues.String("txn_mode"))),
		ReconcileInterval: appValues.Duration("reconcile_interval", 10*time.Minute),

		JoinRateLimit:     appValues.Int("join_rate_limit"),
		JoinRateBurst:     appValues.Int("join_rate_burst"),
		RegisterRateLimit: appValues.Int("register_rate_limit"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),

		AuditLogParticipation: appValues.String("audit_log_participation"),
		AuditLogAdmin:         appValues.String("audit_log_admin"),

		OTelEndpoint: appValues.String("otel_endpoint"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// ClimateHub validates the MongoDB URI format and the token secret to
// catch configuration errors before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d bytes", auth.MinSecretLength)
	}

	switch appCfg.TxnMode {
	case "auto", "off":
	default:
		return fmt.Errorf("txn_mode must be 'auto' or 'off', got %q", appCfg.TxnMode)
	}

	for _, m := range []string{appCfg.AuditLogParticipation, appCfg.AuditLogAdmin} {
		switch m {
		case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("audit log mode must be all, db, log or off, got %q", m)
		}
	}

	if appCfg.JoinRateLimit <= 0 || appCfg.JoinRateBurst <= 0 || appCfg.RegisterRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
