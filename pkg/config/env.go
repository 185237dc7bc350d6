package config

const (
	EnvPrefix = "HERBSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "HERBSTORE_APP_ENV"
	EnvPort            = "HERBSTORE_APP_PORT"
	EnvLogLevel        = "HERBSTORE_LOG_LEVEL"
	EnvDBDSN           = "HERBSTORE_DB_DSN"
	EnvDBHost          = "HERBSTORE_DB_HOST"
	EnvDBUser          = "HERBSTORE_DB_USER"
	EnvDBName          = "HERBSTORE_DB_NAME"
	EnvRedisURL        = "HERBSTORE_REDIS_URL"
	EnvJWTSecret       = "HERBSTORE_JWT_SECRET"
	EnvJWTIssuer       = "HERBSTORE_JWT_ISSUER"
	EnvJWTExpMins      = "HERBSTORE_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite       = "HERBSTORE_USE_SQLITE"
	EnvShippingFee     = "HERBSTORE_SHIPPING_FEE"
	EnvCartTTL         = "HERBSTORE_CART_TTL"
	EnvOrderViewFanout = "HERBSTORE_ORDER_VIEW_FANOUT"
	EnvCORSOrigins     = "HERBSTORE_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
