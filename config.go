package pantrycook

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=128"`
	Temperature float32 `env:"TEMPERATURE,default=0.1"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

// Estimator providers selectable with ESTIMATOR_PROVIDER.
const (
	EstimatorNone    = "none"
	EstimatorMock    = "mock"
	EstimatorBedrock = "bedrock"
	EstimatorOllama  = "ollama"
)

type EngineConfig struct {
	Epsilon                float64       `env:"EPSILON,default=0.01"`
	EstimatorProvider      string        `env:"ESTIMATOR_PROVIDER,default=none"`
	EstimatorTimeout       time.Duration `env:"ESTIMATOR_TIMEOUT,default=5s"`
	EstimatorRatePerMinute int           `env:"ESTIMATOR_RATE_PER_MINUTE,default=60"`
	CategoryCacheTTL       time.Duration `env:"CATEGORY_CACHE_TTL,default=24h"`
	CategoryRulesPath      string        `env:"CATEGORY_RULES_PATH"`
	ReferenceSourceURL     string        `env:"REFERENCE_SOURCE_URL"`
	RedisAddr              string        `env:"REDIS_ADDR"`
	PlanConcurrency        int           `env:"PLAN_CONCURRENCY,default=4"`
}

// Store drivers selectable with STORE_DRIVER.
const (
	StoreFile   = "file"
	StoreS3     = "s3"
	StoreSQLite = "sqlite"
)

type StoreConfig struct {
	Driver               string `env:"STORE_DRIVER,default=file"`
	ArtifactsPantryPath  string `env:"ARTIFACTS_PANTRY_PATH,default=artifacts/pantry.json"`
	ArtifactsRecipesPath string `env:"ARTIFACTS_RECIPES_PATH,default=artifacts/recipes.json"`
	SQLitePath           string `env:"SQLITE_PATH,default=artifacts/pantry.db"`
	S3Bucket             string `env:"ARTIFACTS_S3_BUCKET"`
	S3PantryKey          string `env:"ARTIFACTS_S3_PANTRY_KEY,default=pantry.json"`
	S3RecipesKey         string `env:"ARTIFACTS_S3_RECIPES_KEY,default=recipes.json"`
	BaseOllamaEndpoint   string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	SlackWebhookURL      string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel         string `env:"SLACK_CHANNEL,default=#pantry"`
	Debug                bool   `env:"DEBUG,default=false"`
}

// LoadEngineConfig decodes and checks the engine settings.
func LoadEngineConfig() (EngineConfig, error) {
	var cfg EngineConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("failed to decode engine config: %w", err)
	}
	switch cfg.EstimatorProvider {
	case EstimatorNone, EstimatorMock, EstimatorBedrock, EstimatorOllama:
	default:
		return EngineConfig{}, fmt.Errorf("unknown estimator provider %q", cfg.EstimatorProvider)
	}
	if cfg.Epsilon <= 0 {
		return EngineConfig{}, fmt.Errorf("epsilon must be positive, got %v", cfg.Epsilon)
	}
	if cfg.PlanConcurrency < 1 {
		cfg.PlanConcurrency = 1
	}
	return cfg, nil
}

// LoadStoreConfig decodes and checks the storage settings.
func LoadStoreConfig() (StoreConfig, error) {
	var cfg StoreConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return StoreConfig{}, fmt.Errorf("failed to decode store config: %w", err)
	}
	switch cfg.Driver {
	case StoreFile, StoreSQLite:
	case StoreS3:
		if cfg.S3Bucket == "" {
			return StoreConfig{}, fmt.Errorf("ARTIFACTS_S3_BUCKET is required for the s3 store")
		}
	default:
		return StoreConfig{}, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return cfg, nil
}
