package config

const (
	EnvPrefix = "BRANCHPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "BRANCHPOS_APP_ENV"
	EnvPort     = "BRANCHPOS_APP_PORT"
	EnvLogLevel = "BRANCHPOS_LOG_LEVEL"

	EnvDBDSN  = "BRANCHPOS_DB_DSN"
	EnvDBHost = "BRANCHPOS_DB_HOST"
	EnvDBUser = "BRANCHPOS_DB_USER"
	EnvDBName = "BRANCHPOS_DB_NAME"

	EnvRedisURL  = "BRANCHPOS_REDIS_URL"
	EnvUseSQLite = "BRANCHPOS_USE_SQLITE"

	EnvCatalogCacheTTL = "BRANCHPOS_CATALOG_CACHE_TTL"
	EnvSessionIdleTTL  = "BRANCHPOS_SESSION_IDLE_TTL"
	EnvAllowedOrigins  = "BRANCHPOS_HTTP_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
