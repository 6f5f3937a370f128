package config

import (
	"errors"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	AppPort               int    `mapstructure:"APP_PORT"`
	DevMode               bool   `mapstructure:"DEV_MODE"`
	BcryptCost            int    `mapstructure:"BCRYPT_COST"`
	SignInRatePerMin      int    `mapstructure:"SIGNIN_RATE_PER_MIN"`
	AIRatePerMin          int    `mapstructure:"AI_RATE_PER_MIN"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogFormat             string `mapstructure:"LOG_FORMAT"`
	RequestLoggingEnabled bool   `mapstructure:"REQUEST_LOGGING_ENABLED"`
	RouteMetricsEnabled   bool   `mapstructure:"ROUTE_METRICS_ENABLED"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	VectorDriver  string `mapstructure:"VECTOR_DRIVER"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTAlgorithm       string `mapstructure:"JWT_ALGORITHM"`
	AccessTokenMinutes int    `mapstructure:"ACCESS_TOKEN_MINUTES"`

	WSMaxSessionSec int `mapstructure:"WS_MAX_SESSION_SEC"`
	WSOutboxBuffer  int `mapstructure:"WS_OUTBOX_BUFFER"`

	OpenAIAPIKey       string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `mapstructure:"OPENAI_BASE_URL"`
	EmbeddingModel     string `mapstructure:"EMBEDDING_MODEL"`
	CompletionModel    string `mapstructure:"COMPLETION_MODEL"`
	ProviderTimeoutSec int    `mapstructure:"PROVIDER_TIMEOUT_SEC"`
	EmbedCacheTTLMin   int    `mapstructure:"EMBED_CACHE_TTL_MIN"`

	ChunkSize        int `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap     int `mapstructure:"CHUNK_OVERLAP"`
	EmbedBatchSize   int `mapstructure:"EMBED_BATCH_SIZE"`
	EmbedConcurrency int `mapstructure:"EMBED_CONCURRENCY"`
	RAGTopK          int `mapstructure:"RAG_TOP_K"`

	ShareLinkTTLHours      int    `mapstructure:"SHARE_LINK_TTL_HOURS"`
	ShareLinkMaxTTLHours   int    `mapstructure:"SHARE_LINK_MAX_TTL_HOURS"`
	ShareLinkSweepSchedule string `mapstructure:"SHARE_LINK_SWEEP_SCHEDULE"`

	PyroscopeServerAddress string `mapstructure:"PYROSCOPE_SERVER_ADDRESS"`

	// MCPUserID is the account the stdio MCP server acts as.
	MCPUserID string `mapstructure:"MCP_USER_ID"`
}

var (
	ErrAppPortRange            = errors.New("APP_PORT must be between 1 and 65535")
	ErrBcryptCostRange         = errors.New("BCRYPT_COST must be between 8 and 16")
	ErrSignInRatePerMin        = errors.New("SIGNIN_RATE_PER_MIN must be greater than or equal to 1")
	ErrAIRatePerMin            = errors.New("AI_RATE_PER_MIN must be greater than or equal to 1")
	ErrLogLevelEmpty           = errors.New("LOG_LEVEL cannot be empty")
	ErrLogFormatEmpty          = errors.New("LOG_FORMAT cannot be empty")
	ErrStorageDriver           = errors.New("STORAGE_DRIVER must be either mongo or memory")
	ErrVectorDriver            = errors.New("VECTOR_DRIVER must be either mongo or memory")
	ErrMongoURIEmpty           = errors.New("MONGO_URI cannot be empty")
	ErrMongoDBNameEmpty        = errors.New("MONGO_DB_NAME cannot be empty")
	ErrJWTSecretRequired       = errors.New("JWT_SECRET is required outside DEV_MODE")
	ErrJWTSecretTooShort       = errors.New("JWT_SECRET must be at least 32 characters for HS256")
	ErrJWTAlgorithmUnsupported = errors.New("JWT_ALGORITHM must be HS256")
	ErrAccessTokenMinutes      = errors.New("ACCESS_TOKEN_MINUTES must be greater than 0")
	ErrWSMaxSessionSec         = errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	ErrWSOutboxBuffer          = errors.New("WS_OUTBOX_BUFFER must be greater than 0")
	ErrProviderTimeout         = errors.New("PROVIDER_TIMEOUT_SEC must be greater than 0")
	ErrChunkSize               = errors.New("CHUNK_SIZE must be greater than 0")
	ErrChunkOverlap            = errors.New("CHUNK_OVERLAP must be at least 0 and smaller than CHUNK_SIZE")
	ErrEmbedBatchSize          = errors.New("EMBED_BATCH_SIZE must be greater than 0")
	ErrEmbedConcurrency        = errors.New("EMBED_CONCURRENCY must be greater than 0")
	ErrRAGTopK                 = errors.New("RAG_TOP_K must be greater than 0")
	ErrShareLinkTTL            = errors.New("SHARE_LINK_TTL_HOURS must be between 0 and SHARE_LINK_MAX_TTL_HOURS")
)

// devJWTSecret is only used when DEV_MODE is on and no secret was configured.
const devJWTSecret = "dev-mode-only-jwt-secret-do-not-use-in-production"

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and .env file
// It caches the result for subsequent calls
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// a missing .env is fine
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("BCRYPT_COST", 8)
	v.SetDefault("SIGNIN_RATE_PER_MIN", 5)
	v.SetDefault("AI_RATE_PER_MIN", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REQUEST_LOGGING_ENABLED", true)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)

	v.SetDefault("STORAGE_DRIVER", "mongo")
	v.SetDefault("VECTOR_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "noteflow")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_MINUTES", 60)

	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("WS_OUTBOX_BUFFER", 256)

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("COMPLETION_MODEL", "gpt-4o")
	v.SetDefault("PROVIDER_TIMEOUT_SEC", 30)
	v.SetDefault("EMBED_CACHE_TTL_MIN", 1440)

	v.SetDefault("CHUNK_SIZE", 1500)
	v.SetDefault("CHUNK_OVERLAP", 100)
	v.SetDefault("EMBED_BATCH_SIZE", 64)
	v.SetDefault("EMBED_CONCURRENCY", 4)
	v.SetDefault("RAG_TOP_K", 3)

	v.SetDefault("SHARE_LINK_TTL_HOURS", 168)
	v.SetDefault("SHARE_LINK_MAX_TTL_HOURS", 720)
	v.SetDefault("SHARE_LINK_SWEEP_SCHEDULE", "@every 15m")

	v.SetDefault("PYROSCOPE_SERVER_ADDRESS", "")
	v.SetDefault("MCP_USER_ID", "")
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// EffectiveJWTSecret returns the configured secret, falling back to a fixed
// development secret when DEV_MODE is on.
func (c Config) EffectiveJWTSecret() string {
	if c.JWTSecret == "" && c.DevMode {
		return devJWTSecret
	}
	return c.JWTSecret
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return ErrAppPortRange
	}
	if c.BcryptCost < 8 || c.BcryptCost > 16 {
		return ErrBcryptCostRange
	}
	if c.SignInRatePerMin < 1 {
		return ErrSignInRatePerMin
	}
	if c.AIRatePerMin < 1 {
		return ErrAIRatePerMin
	}
	if c.LogLevel == "" {
		return ErrLogLevelEmpty
	}
	if c.LogFormat == "" {
		return ErrLogFormatEmpty
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if c.WSMaxSessionSec <= 0 {
		return ErrWSMaxSessionSec
	}
	if c.WSOutboxBuffer <= 0 {
		return ErrWSOutboxBuffer
	}
	return c.validateRAG()
}

func (c Config) validateStorage() error {
	switch c.StorageDriver {
	case "mongo", "memory":
	default:
		return ErrStorageDriver
	}
	switch c.VectorDriver {
	case "mongo", "memory":
	default:
		return ErrVectorDriver
	}
	if c.StorageDriver == "mongo" || c.VectorDriver == "mongo" {
		if c.MongoURI == "" {
			return ErrMongoURIEmpty
		}
		if c.MongoDBName == "" {
			return ErrMongoDBNameEmpty
		}
	}
	return nil
}

func (c Config) validateAuth() error {
	if c.JWTAlgorithm != "HS256" {
		return ErrJWTAlgorithmUnsupported
	}
	if c.AccessTokenMinutes <= 0 {
		return ErrAccessTokenMinutes
	}
	if c.JWTSecret == "" {
		if c.DevMode {
			return nil
		}
		return ErrJWTSecretRequired
	}
	if len(c.JWTSecret) < 32 {
		return ErrJWTSecretTooShort
	}
	return nil
}

func (c Config) validateRAG() error {
	if c.ProviderTimeoutSec <= 0 {
		return ErrProviderTimeout
	}
	if c.ChunkSize <= 0 {
		return ErrChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return ErrChunkOverlap
	}
	if c.EmbedBatchSize <= 0 {
		return ErrEmbedBatchSize
	}
	if c.EmbedConcurrency <= 0 {
		return ErrEmbedConcurrency
	}
	if c.RAGTopK <= 0 {
		return ErrRAGTopK
	}
	if c.ShareLinkTTLHours < 0 || c.ShareLinkTTLHours > c.ShareLinkMaxTTLHours {
		return ErrShareLinkTTL
	}
	return nil
}
