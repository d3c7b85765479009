// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration (ports, TLS, log level).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Token verification. Tokens are issued elsewhere; only the HS256
	// secret is needed here.
	JWTSecret string

	// Browser origins allowed to call the API. Empty disables CORS headers.
	CORSOrigins []string

	// Cross-document consistency: "auto" tries transactions and falls back
	// to compensation; "off" always compensates.
	TxnMode string

	// Background reconciliation of user joined lists. Zero disables it.
	ReconcileInterval time.Duration

	// Per-user limits on join/leave and per-client limits on registration.
	JoinRateLimit     int // requests per minute
	JoinRateBurst     int
	RegisterRateLimit int // requests per minute

	// Persistence timeouts.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit destinations: all, db, log or off.
	AuditLogParticipation string
	AuditLogAdmin         string

	// OTLP/HTTP endpoint for traces. Empty disables tracing.
	OTelEndpoint string

	// Bootstrap admin. An existing account with this email is promoted;
	// otherwise one is created when a password is also given.
	AdminEmail    string
	AdminPassword string
}
