// Package setup builds the pantry engine from configuration: the lot store for the selected
// driver, the categorizer with its cache and sources, the fallback estimator, the coordinator
// and the tool registry on top of them.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"pantrycook"
	"pantrycook/categorize"
	"pantrycook/coordinator"
	"pantrycook/estimator"
	"pantrycook/estimator/bedrock"
	"pantrycook/estimator/mock"
	"pantrycook/estimator/ollama"
	"pantrycook/slack"
	"pantrycook/tools"
	"pantrycook/tools/storage"
)

// Config gathers every setting the engine reads from the environment.
type Config struct {
	Engine pantrycook.EngineConfig
	Store  pantrycook.StoreConfig
	// Model is only decoded when a model-backed estimator is selected.
	Model pantrycook.ModelConfig
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	var err error
	if cfg.Engine, err = pantrycook.LoadEngineConfig(); err != nil {
		return Config{}, err
	}
	if cfg.Store, err = pantrycook.LoadStoreConfig(); err != nil {
		return Config{}, err
	}
	switch cfg.Engine.EstimatorProvider {
	case pantrycook.EstimatorBedrock, pantrycook.EstimatorOllama:
		if err := envdecode.Decode(&cfg.Model); err != nil {
			return Config{}, fmt.Errorf("failed to decode model config: %w", err)
		}
	}
	return cfg, nil
}

// App is a wired engine. Close releases what New opened.
type App struct {
	Store       storage.LotStore
	Recipes     storage.RecipeState
	Categorizer *categorize.Categorizer
	Coordinator *coordinator.Coordinator
	Registry    *tools.Registry

	closers []func(context.Context) error
}

// New wires an App. logger receives one entry per consumed ingredient; nil discards them.
func New(ctx context.Context, cfg Config, logger pantrycook.ConsumptionLogger) (*App, error) {
	pantrycook.SetDebug(cfg.Store.Debug)
	app := &App{}

	_, _, otelShutdown, err := pantrycook.InitOtel(ctx)
	switch {
	case errors.Is(err, pantrycook.ErrOtelNotConfigured):
		slog.Info("SETUP: OpenTelemetry exporter not configured, telemetry stays local")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	default:
		app.closers = append(app.closers, otelShutdown)
	}

	if err := app.openStores(ctx, cfg.Store); err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}
	if app.Categorizer, err = app.newCategorizer(cfg.Engine); err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}
	est, err := newEstimator(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	coordCfg := coordinator.Config{
		Store:            app.Store,
		Classifier:       app.Categorizer,
		Estimator:        est,
		EstimatorTimeout: cfg.Engine.EstimatorTimeout,
		Epsilon:          cfg.Engine.Epsilon,
		Concurrency:      cfg.Engine.PlanConcurrency,
		Logger:           logger,
		SlackChannel:     cfg.Store.SlackChannel,
	}
	if cfg.Store.SlackWebhookURL != "" {
		coordCfg.Slack = slack.NewClient(cfg.Store.SlackWebhookURL, http.DefaultClient)
	}
	if app.Coordinator, err = coordinator.New(coordCfg); err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}

	app.Registry, err = tools.NewRegistry(tools.Deps{
		Store:       app.Store,
		Recipes:     app.Recipes,
		Categorizer: app.Categorizer,
		Coordinator: app.Coordinator,
	})
	if err != nil {
		return nil, errors.Join(err, app.Close(ctx))
	}
	slog.Info("SETUP: engine ready",
		"store", cfg.Store.Driver,
		"estimator", cfg.Engine.EstimatorProvider,
		"tools", len(app.Registry.GetTools()))
	return app, nil
}

func (a *App) openStores(ctx context.Context, cfg pantrycook.StoreConfig) error {
	switch cfg.Driver {
	case pantrycook.StoreS3:
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		store, err := storage.OpenDocumentLotStore(ctx, storage.NewS3PantryState(client, cfg.S3Bucket, cfg.S3PantryKey))
		if err != nil {
			return err
		}
		a.Store = store
		a.Recipes = storage.NewS3RecipeState(client, cfg.S3Bucket, cfg.S3RecipesKey)
		slog.Info("SETUP: S3 pantry and recipe state initialized", "bucket", cfg.S3Bucket)

	case pantrycook.StoreSQLite:
		store, err := storage.NewSQLiteLotStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		a.Store = store
		a.Recipes = storage.NewFileRecipeState(cfg.ArtifactsRecipesPath)
		slog.Info("SETUP: SQLite pantry initialized", "path", cfg.SQLitePath)

	default:
		store, err := storage.OpenDocumentLotStore(ctx, storage.NewFilePantryState(cfg.ArtifactsPantryPath))
		if err != nil {
			return err
		}
		a.Store = store
		a.Recipes = storage.NewFileRecipeState(cfg.ArtifactsRecipesPath)
		slog.Info("SETUP: file pantry and recipe state initialized", "pantry", cfg.ArtifactsPantryPath)
	}
	return nil
}

func (a *App) newCategorizer(cfg pantrycook.EngineConfig) (*categorize.Categorizer, error) {
	var opts []categorize.Option

	if cfg.CategoryRulesPath != "" {
		f, err := os.Open(cfg.CategoryRulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open category rules: %w", err)
		}
		defer f.Close()
		rules, err := categorize.LoadPatternRules(f)
		if err != nil {
			return nil, err
		}
		opts = append(opts, categorize.WithPatternRules(rules...))
		slog.Info("SETUP: category rules loaded", "count", len(rules))
	}

	if cfg.ReferenceSourceURL != "" {
		opts = append(opts, categorize.WithSources(categorize.NewHTTPSource(cfg.ReferenceSourceURL, http.DefaultClient)))
	}

	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		opts = append(opts, categorize.WithCache(categorize.NewRedisCache(client, cfg.CategoryCacheTTL)))
		slog.Info("SETUP: categorization cache on Redis", "addr", cfg.RedisAddr)
	} else {
		opts = append(opts, categorize.WithCache(categorize.NewMemoryCache(cfg.CategoryCacheTTL)))
	}

	return categorize.New(opts...), nil
}

func newEstimator(ctx context.Context, cfg Config) (estimator.Estimator, error) {
	var est estimator.Estimator
	switch cfg.Engine.EstimatorProvider {
	case pantrycook.EstimatorMock:
		est = mock.NewEstimator()
	case pantrycook.EstimatorBedrock:
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		est = bedrock.NewEstimator(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     cfg.Model.ModelID,
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
			TopP:        cfg.Model.TopP,
		})
	case pantrycook.EstimatorOllama:
		c, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.Store.BaseOllamaEndpoint,
			ModelID:      cfg.Model.ModelID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama estimator: %w", err)
		}
		est = c
	default:
		return nil, nil
	}
	return estimator.NewRateLimited(est, cfg.Engine.EstimatorRatePerMinute), nil
}

// Close releases stores, caches and telemetry in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
