package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	VNPay        VNPayConfig
	MoMo         MoMoConfig
	Trades       TradesConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MODA_APP_ENV" required:"true"`
	Port         string   `envconfig:"MODA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"MODA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MODA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MODA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MODA_SERVICE_KIND" default:"api"`
	// MetricsAddr is where the background workers expose /metrics. Empty disables it.
	MetricsAddr string `envconfig:"MODA_WORKER_METRICS_ADDR" default:":9091"`
}

type DBConfig struct {
	DSN string `envconfig:"MODA_DB_DSN"`

	LegacyHost     string `envconfig:"MODA_DB_HOST"`
	LegacyPort     int    `envconfig:"MODA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MODA_DB_USER"`
	LegacyPassword string `envconfig:"MODA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MODA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MODA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MODA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MODA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MODA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MODA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"MODA_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MODA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MODA_REDIS_ADDR"`
	Password     string        `envconfig:"MODA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MODA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MODA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MODA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MODA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MODA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MODA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MODA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MODA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MODA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MODA_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig bounds the authoritative stock transaction.
type CheckoutConfig struct {
	TxMaxWait       time.Duration `envconfig:"MODA_CHECKOUT_TX_MAX_WAIT" default:"5s"`
	TxTimeout       time.Duration `envconfig:"MODA_CHECKOUT_TX_TIMEOUT" default:"10s"`
	TxMaxRetries    uint64        `envconfig:"MODA_CHECKOUT_TX_MAX_RETRIES" default:"3"`
	StockLockMode   string        `envconfig:"MODA_CHECKOUT_STOCK_LOCK_MODE" default:"optimistic"`
	PointValue      int64         `envconfig:"MODA_CHECKOUT_POINT_VALUE" default:"1000"`
	RefundRetries   uint64        `envconfig:"MODA_CHECKOUT_REFUND_RETRIES" default:"3"`
	RefundBaseDelay time.Duration `envconfig:"MODA_CHECKOUT_REFUND_BASE_DELAY" default:"500ms"`
	CallbackTTL     time.Duration `envconfig:"MODA_CHECKOUT_CALLBACK_TTL" default:"72h"`
}

// PessimisticLocking reports whether stock rows should be read FOR UPDATE.
func (c CheckoutConfig) PessimisticLocking() bool {
	return strings.EqualFold(strings.TrimSpace(c.StockLockMode), StockLockPessimistic)
}

type VNPayConfig struct {
	TmnCode    string        `envconfig:"MODA_VNPAY_TMN_CODE"`
	HashSecret string        `envconfig:"MODA_VNPAY_HASH_SECRET"`
	PayURL     string        `envconfig:"MODA_VNPAY_PAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	APIURL     string        `envconfig:"MODA_VNPAY_API_URL" default:"https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"`
	ReturnURL  string        `envconfig:"MODA_VNPAY_RETURN_URL"`
	Timeout    time.Duration `envconfig:"MODA_VNPAY_TIMEOUT" default:"15s"`
}

type MoMoConfig struct {
	PartnerCode string        `envconfig:"MODA_MOMO_PARTNER_CODE"`
	AccessKey   string        `envconfig:"MODA_MOMO_ACCESS_KEY"`
	SecretKey   string        `envconfig:"MODA_MOMO_SECRET_KEY"`
	Endpoint    string        `envconfig:"MODA_MOMO_ENDPOINT" default:"https://test-payment.momo.vn"`
	RedirectURL string        `envconfig:"MODA_MOMO_REDIRECT_URL"`
	IPNURL      string        `envconfig:"MODA_MOMO_IPN_URL"`
	RequestType string        `envconfig:"MODA_MOMO_REQUEST_TYPE" default:"captureWallet"`
	Timeout     time.Duration `envconfig:"MODA_MOMO_TIMEOUT" default:"15s"`
}

type TradesConfig struct {
	AutoCompleteAfter time.Duration `envconfig:"MODA_TRADES_AUTO_COMPLETE_AFTER" default:"168h"`
	AutoCompleteBatch int           `envconfig:"MODA_TRADES_AUTO_COMPLETE_BATCH" default:"100"`
}

type EventingConfig struct {
	Broker string `envconfig:"MODA_EVENTING_BROKER" default:"pubsub"`
}

func (e EventingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Broker)) {
	case BrokerPubSub, BrokerKafka:
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvEventingBroker, e.Broker)
}

// UsesKafka reports whether domain events go to Kafka instead of Pub/Sub.
func (e EventingConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Broker), BrokerKafka)
}

type GCPConfig struct {
	ProjectID string `envconfig:"MODA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"MODA_PUBSUB_ORDERS_TOPIC" default:"moda-orders"`
	TradesTopic   string `envconfig:"MODA_PUBSUB_TRADES_TOPIC" default:"moda-trades"`
	ListingsTopic string `envconfig:"MODA_PUBSUB_LISTINGS_TOPIC" default:"moda-listings"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"MODA_KAFKA_BROKERS"`
	WriteTimeout time.Duration `envconfig:"MODA_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MODA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MODA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MODA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"MODA_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MODA_CRON_INTERVAL" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
