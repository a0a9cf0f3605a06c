package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBPort = "STOREFRONT_DB_PORT"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBPass = "STOREFRONT_DB_PASSWORD"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvCartAnonymousTTL  = "STOREFRONT_CART_ANONYMOUS_TTL"
	EnvCronInterval      = "STOREFRONT_CRON_INTERVAL"
	EnvCORSOrigins       = "STOREFRONT_CORS_ALLOWED_ORIGINS"

	EnvOrderNumberPrefix      = "STOREFRONT_ORDER_NUMBER_PREFIX"
	EnvOrderNumberDigits      = "STOREFRONT_ORDER_NUMBER_DIGITS"
	EnvOrderNumberMaxAttempts = "STOREFRONT_ORDER_NUMBER_MAX_ATTEMPTS"

	EnvOutboxBatchSize         = "STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvRateLimitCheckoutWindow = "STOREFRONT_RATE_LIMIT_CHECKOUT_WINDOW"
	EnvRateLimitCheckoutLimit  = "STOREFRONT_RATE_LIMIT_CHECKOUT_USER_LIMIT"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
