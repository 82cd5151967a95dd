package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"docassist/internal/ai"
	"docassist/internal/app"
	"docassist/internal/cache"
	"docassist/internal/config"
	"docassist/internal/metrics"
	rabbitmqClient "docassist/internal/platform/rabbitmq"
	redisClient "docassist/internal/platform/redis"
	"docassist/internal/repository"
	"docassist/internal/worker"
)

type Options struct {
	// Serve connects the optional redis and rabbitmq backends and starts the
	// ingest worker. One-shot CLI commands leave it off.
	Serve bool
}

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	AI        *ai.Client
	Store     *repository.DocumentStore
	Documents *app.DocumentService
	Chat      *app.ChatService
	Auth      *app.AuthService
	Ingest    *app.IngestService

	Sessions     app.SessionStore
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	a.AI = ai.NewClient(ai.ClientConfig{
		BaseURL:    cfg.OpenAI.BaseURL,
		APIKey:     cfg.OpenAI.APIKey,
		BetaHeader: cfg.OpenAI.BetaHeader,
		Timeout:    cfg.OpenAITimeout(),
	})
	if cfg.OpenAI.VerifyOnStart {
		if _, err := a.AI.ListModels(ctx); err != nil {
			return nil, fmt.Errorf("verify openai credentials failed: %w", err)
		}
		logger.Info("openai credentials verified", "base_url", cfg.OpenAI.BaseURL)
	}

	a.Store = repository.NewDocumentStore(cfg.Store.Path, cfg.OpenAI.AssistantID, logger)
	if _, status, err := a.Store.Load(); err != nil {
		logger.Warn("document store unreadable", "path", cfg.Store.Path, "err", err)
	} else {
		logger.Info("document store loaded", "path", cfg.Store.Path, "status", status.String())
	}

	a.Documents = app.NewDocumentService(a.AI, a.Store, app.DocumentOptions{
		AssistantID:       cfg.OpenAI.AssistantID,
		VectorStoreName:   cfg.VectorStore.Name,
		ExpiryDays:        cfg.VectorStore.ExpiryDays,
		BatchPollInterval: cfg.BatchPollInterval(),
		BatchTimeout:      cfg.BatchTimeout(),
		BindMode:          cfg.VectorStore.BindMode,
		AllowedExtensions: cfg.Ingest.AllowedExtensions,
		MaxFileBytes:      cfg.MaxFileBytes(),
		UploadConcurrency: cfg.Ingest.UploadConcurrency,
		ValidatePDF:       cfg.Ingest.ValidatePDF,
	}, a.Metrics, logger)

	a.Sessions = cache.NewMemorySessionStore(cfg.SessionTTL())
	if opts.Serve && cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Redis = redisCli
		a.Sessions = cache.NewRedisSessionStore(redisCli, cfg.SessionTTL())
		logger.Info("session store: redis", "addr", cfg.Redis.Addr)
	}

	a.Chat = app.NewChatService(a.AI, a.Documents, a.Sessions, app.ChatOptions{
		AssistantID:        cfg.OpenAI.AssistantID,
		APIKey:             cfg.OpenAI.APIKey,
		PollInterval:       cfg.RunPollInterval(),
		RunTimeout:         cfg.RunTimeout(),
		SuggestedQuestions: cfg.Chat.SuggestedQuestions,
		Debug:              cfg.App.Debug,
	}, a.Metrics, logger)

	auth, err := app.NewAuthService(a.Chat, cfg.Auth.AccessKey, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Auth = auth

	if opts.Serve && cfg.Ingest.Async {
		if cfg.RabbitMQ.URL == "" {
			logger.Warn("ingest.async is set but rabbitmq.url is empty, uploads stay synchronous")
		} else if err := a.startIngestQueue(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) startIngestQueue(ctx context.Context) error {
	cfg := a.Config
	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.MQConn = mqConn

	publisher := rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	a.Ingest = app.NewIngestService(a.Documents, publisher, cfg.Ingest.StagingDir, a.Metrics, a.Logger)

	a.IngestWorker = worker.NewIngestWorker(mqConn, a.Ingest, cfg.RabbitMQ.IngestQueue, a.Logger)
	if err := a.IngestWorker.Start(ctx); err != nil {
		return fmt.Errorf("start ingest worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
