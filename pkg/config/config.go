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
	Identity     IdentityConfig
	FeatureFlags FeatureFlagsConfig
	Credits      CreditsConfig
	Prompt       PromptConfig
	Replicate    ReplicateConfig
	ImageKit     ImageKitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ADSPARK_APP_ENV" required:"true"`
	Port         string `envconfig:"ADSPARK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ADSPARK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ADSPARK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ADSPARK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ADSPARK_DB_DSN"`
	Driver string `envconfig:"ADSPARK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ADSPARK_DB_HOST"`
	LegacyPort     int    `envconfig:"ADSPARK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ADSPARK_DB_USER"`
	LegacyPassword string `envconfig:"ADSPARK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ADSPARK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ADSPARK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ADSPARK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ADSPARK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ADSPARK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ADSPARK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ADSPARK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ADSPARK_REDIS_ADDR"`
	Password     string        `envconfig:"ADSPARK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ADSPARK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ADSPARK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ADSPARK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ADSPARK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ADSPARK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ADSPARK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig describes the external identity provider's token parameters.
// The provider signs HS256 tokens carrying uid/email/name/picture claims.
type IdentityConfig struct {
	JWTSecret string `envconfig:"ADSPARK_IDENTITY_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"ADSPARK_IDENTITY_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ADSPARK_AUTO_MIGRATE" default:"false"`
}

// CreditsConfig carries the credit pricing table and the signup grant.
type CreditsConfig struct {
	SignupGrant     int `envconfig:"ADSPARK_CREDITS_SIGNUP_GRANT" default:"20"`
	ImageCost       int `envconfig:"ADSPARK_CREDITS_IMAGE_COST" default:"2"`
	AvatarImageCost int `envconfig:"ADSPARK_CREDITS_AVATAR_IMAGE_COST" default:"5"`
	VideoCost       int `envconfig:"ADSPARK_CREDITS_VIDEO_COST" default:"4"`
}

// PromptConfig configures the OpenAI-compatible prompt synthesis service.
type PromptConfig struct {
	APIKey  string        `envconfig:"ADSPARK_PROMPT_API_KEY"`
	BaseURL string        `envconfig:"ADSPARK_PROMPT_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"ADSPARK_PROMPT_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"ADSPARK_PROMPT_TIMEOUT" default:"60s"`
}

// ReplicateConfig configures the image/video synthesis service.
type ReplicateConfig struct {
	APIToken     string        `envconfig:"ADSPARK_REPLICATE_API_TOKEN"`
	BaseURL      string        `envconfig:"ADSPARK_REPLICATE_BASE_URL" default:"https://api.replicate.com/v1"`
	ImageModel   string        `envconfig:"ADSPARK_REPLICATE_IMAGE_MODEL" default:"google/nano-banana"`
	VideoModel   string        `envconfig:"ADSPARK_REPLICATE_VIDEO_MODEL" default:"google/veo-3-fast"`
	PollInterval time.Duration `envconfig:"ADSPARK_REPLICATE_POLL_INTERVAL" default:"2s"`
	PollTimeout  time.Duration `envconfig:"ADSPARK_REPLICATE_POLL_TIMEOUT" default:"10m"`
}

// ImageKitConfig configures the durable object storage service.
type ImageKitConfig struct {
	PrivateKey  string        `envconfig:"ADSPARK_IMAGEKIT_PRIVATE_KEY"`
	UploadURL   string        `envconfig:"ADSPARK_IMAGEKIT_UPLOAD_URL" default:"https://upload.imagekit.io/api/v1/files/upload"`
	APIBaseURL  string        `envconfig:"ADSPARK_IMAGEKIT_API_BASE_URL" default:"https://api.imagekit.io/v1"`
	ImageFolder string        `envconfig:"ADSPARK_IMAGEKIT_IMAGE_FOLDER" default:"/ai-generated-images/"`
	VideoFolder string        `envconfig:"ADSPARK_IMAGEKIT_VIDEO_FOLDER" default:"/ai-generated-videos/"`
	Timeout     time.Duration `envconfig:"ADSPARK_IMAGEKIT_TIMEOUT" default:"120s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ADSPARK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ADSPARK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ADSPARK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CleanupTopic        string `envconfig:"ADSPARK_PUBSUB_CLEANUP_TOPIC" default:"adspark-asset-cleanup"`
	CleanupSubscription string `envconfig:"ADSPARK_PUBSUB_CLEANUP_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset               string `envconfig:"ADSPARK_BIGQUERY_DATASET" default:"adspark"`
	GenerationEventsTable string `envconfig:"ADSPARK_BIGQUERY_GENERATION_TABLE" default:"generation_events"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ADSPARK_STRIPE_API_KEY"`
	Secret string `envconfig:"ADSPARK_STRIPE_SECRET"`
	Env    string `envconfig:"ADSPARK_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CronConfig struct {
	VideoPendingTTL time.Duration `envconfig:"ADSPARK_CRON_VIDEO_PENDING_TTL" default:"1h"`
	SweepInterval   time.Duration `envconfig:"ADSPARK_CRON_SWEEP_INTERVAL" default:"10m"`
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
