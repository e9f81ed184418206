package config

const (
	envConfigFile            = "TAKWIRA_CONFIG"
	envLambda                = "AWS_LAMBDA_FUNCTION_NAME"
	envAddr                  = "ADDR"
	envApp                   = "APP"
	envStoreBackend          = "STORE_BACKEND"
	envPostgresDSN           = "POSTGRES_DSN"
	envDBPath                = "DB_PATH"
	envPostgresMigrationsDir = "POSTGRES_MIGRATIONS_DIR"
	envDBMigrationsDir       = "DB_MIGRATIONS_DIR"
	envAutoMigrate           = "DB_AUTO_MIGRATE"
	envRedisURL              = "REDIS_URL"
	envRedisChannel          = "REDIS_CHANNEL"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
	envMetricsOn             = "METRICS_ENABLED"
	envDragThreshold         = "DRAG_THRESHOLD"
	envMaxSessions           = "MAX_SESSIONS"

	defaultAddr          = ":8080"
	defaultApp           = "prod"
	defaultRedisChannel  = "takwira:players"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultMetrics       = true
	defaultDragThreshold = 15.0
	defaultMaxSessions   = 500
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// AppDev seeds the in-memory backend with sample players.
const AppDev = "dev"
