package config

const EnvPrefix = "MODA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BrokerPubSub = "pubsub"
	BrokerKafka  = "kafka"

	StockLockOptimistic  = "optimistic"
	StockLockPessimistic = "pessimistic"
)

const (
	EnvAppEnv      = "MODA_APP_ENV"
	EnvPort        = "MODA_APP_PORT"
	EnvLogLevel    = "MODA_LOG_LEVEL"
	EnvServiceKind = "MODA_SERVICE_KIND"

	EnvDBDSN  = "MODA_DB_DSN"
	EnvDBHost = "MODA_DB_HOST"
	EnvDBPort = "MODA_DB_PORT"
	EnvDBUser = "MODA_DB_USER"
	EnvDBPass = "MODA_DB_PASSWORD"
	EnvDBName = "MODA_DB_NAME"

	EnvRedisURL = "MODA_REDIS_URL"

	EnvJWTSecret  = "MODA_JWT_SECRET"
	EnvJWTIssuer  = "MODA_JWT_ISSUER"
	EnvJWTExpMins = "MODA_JWT_EXPIRATION_MINUTES"

	EnvCheckoutTxMaxWait  = "MODA_CHECKOUT_TX_MAX_WAIT"
	EnvCheckoutTxTimeout  = "MODA_CHECKOUT_TX_TIMEOUT"
	EnvCheckoutLockMode   = "MODA_CHECKOUT_STOCK_LOCK_MODE"
	EnvCheckoutPointValue = "MODA_CHECKOUT_POINT_VALUE"

	EnvVNPayTmnCode    = "MODA_VNPAY_TMN_CODE"
	EnvVNPayHashSecret = "MODA_VNPAY_HASH_SECRET"
	EnvMoMoPartnerCode = "MODA_MOMO_PARTNER_CODE"
	EnvMoMoSecretKey   = "MODA_MOMO_SECRET_KEY"

	EnvTradesAutoCompleteAfter = "MODA_TRADES_AUTO_COMPLETE_AFTER"

	EnvEventingBroker = "MODA_EVENTING_BROKER"
	EnvGCPProjectID   = "MODA_GCP_PROJECT_ID"
	EnvKafkaBrokers   = "MODA_KAFKA_BROKERS"

	EnvPubSubOrdersTopic = "MODA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubTradesTopic = "MODA_PUBSUB_TRADES_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
