package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

type Config struct {
	App         AppConfig         `toml:"app"`
	Auth        AuthConfig        `toml:"auth"`
	OpenAI      OpenAIConfig      `toml:"openai"`
	Store       StoreConfig       `toml:"store"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Run         RunConfig         `toml:"run"`
	Ingest      IngestConfig      `toml:"ingest"`
	Chat        ChatConfig        `toml:"chat"`
	Redis       RedisConfig       `toml:"redis"`
	RabbitMQ    RabbitMQConfig    `toml:"rabbitmq"`
	Log         LogConfig         `toml:"log"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
	Debug   bool   `toml:"debug"`
}

type AuthConfig struct {
	// AccessKey is the single shared key. Empty means any caller may open a session.
	AccessKey       string `toml:"access_key"`
	JWTSecret       string `toml:"jwt_secret"`
	JWTExpireMinute int    `toml:"jwt_expire_minute"`
}

type OpenAIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	AssistantID    string `toml:"assistant_id"`
	BetaHeader     string `toml:"beta_header"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	VerifyOnStart  bool   `toml:"verify_on_start"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type VectorStoreConfig struct {
	Name                string `toml:"name"`
	ExpiryDays          int    `toml:"expiry_days"`
	BatchPollMillis     int    `toml:"batch_poll_ms"`
	BatchTimeoutSeconds int    `toml:"batch_timeout_seconds"`
	BindMode            string `toml:"bind_mode"`
}

type RunConfig struct {
	PollIntervalMillis int `toml:"poll_interval_ms"`
	TimeoutSeconds     int `toml:"timeout_seconds"`
}

type IngestConfig struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
	MaxFileMB         int      `toml:"max_file_mb"`
	UploadConcurrency int      `toml:"upload_concurrency"`
	ValidatePDF       bool     `toml:"validate_pdf"`
	Async             bool     `toml:"async"`
	StagingDir        string   `toml:"staging_dir"`
}

type ChatConfig struct {
	SuggestedQuestions []string `toml:"suggested_questions"`
}

type RedisConfig struct {
	Addr              string `toml:"addr"`
	Password          string `toml:"password"`
	DB                int    `toml:"db"`
	SessionTTLSeconds int    `toml:"session_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL         string `toml:"url"`
	IngestQueue string `toml:"ingest_queue"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads .env, then the TOML file named by CONFIG_FILE, then env overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(getEnv("CONFIG_FILE", "configs/config.toml"))
}

// LoadFile is Load without the .env step. A missing file is not an error.
func LoadFile(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.OpenAI.AssistantID) == "" {
		return errors.New("openai.assistant_id is empty")
	}
	switch c.VectorStore.BindMode {
	case "replace", "merge":
	default:
		return fmt.Errorf("vector_store.bind_mode %q is not one of replace, merge", c.VectorStore.BindMode)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

func (c *Config) BatchPollInterval() time.Duration {
	return time.Duration(c.VectorStore.BatchPollMillis) * time.Millisecond
}

func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.VectorStore.BatchTimeoutSeconds) * time.Second
}

func (c *Config) RunPollInterval() time.Duration {
	return time.Duration(c.Run.PollIntervalMillis) * time.Millisecond
}

func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Redis.SessionTTLSeconds) * time.Second
}

func (c *Config) MaxFileBytes() int64 {
	return int64(c.Ingest.MaxFileMB) << 20
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "docassist",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		Auth: AuthConfig{
			JWTSecret:       "change-me-in-production",
			JWTExpireMinute: 240,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			AssistantID:    "asst_nPcXHjfN0G8nFcpWPxo08byE",
			BetaHeader:     "assistants=v2",
			TimeoutSeconds: 90,
			VerifyOnStart:  true,
		},
		Store: StoreConfig{
			Path: "data/document_store.json",
		},
		VectorStore: VectorStoreConfig{
			Name:                "Drug Approval Review Reports",
			ExpiryDays:          30,
			BatchPollMillis:     2000,
			BatchTimeoutSeconds: 600,
			BindMode:            "replace",
		},
		Run: RunConfig{
			PollIntervalMillis: 1000,
			TimeoutSeconds:     300,
		},
		Ingest: IngestConfig{
			AllowedExtensions: []string{".pdf", ".txt", ".md", ".docx"},
			MaxFileMB:         20,
			UploadConcurrency: 4,
			ValidatePDF:       true,
			StagingDir:        "data/staging",
		},
		Chat: ChatConfig{
			SuggestedQuestions: []string{
				"What are the main indications of this drug?",
				"Give examples of dosage-form changes among data-submission drugs.",
				"What is the dosage and administration?",
				"Give examples of route-of-administration changes among data-submission drugs.",
			},
		},
		Redis: RedisConfig{
			SessionTTLSeconds: 4 * 60 * 60,
		},
		RabbitMQ: RabbitMQConfig{
			IngestQueue: "docassist.ingest",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.Debug = getEnvAsBool("APP_DEBUG", cfg.App.Debug)

	cfg.Auth.AccessKey = getEnv("ACCESS_KEY", cfg.Auth.AccessKey)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpireMinute = getEnvAsInt("JWT_EXPIRE_MINUTE", cfg.Auth.JWTExpireMinute)

	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.AssistantID = getEnv("OPENAI_ASSISTANT_ID", cfg.OpenAI.AssistantID)
	cfg.OpenAI.BetaHeader = getEnv("OPENAI_BETA_HEADER", cfg.OpenAI.BetaHeader)
	cfg.OpenAI.TimeoutSeconds = getEnvAsInt("OPENAI_TIMEOUT_SECONDS", cfg.OpenAI.TimeoutSeconds)
	cfg.OpenAI.VerifyOnStart = getEnvAsBool("OPENAI_VERIFY_ON_START", cfg.OpenAI.VerifyOnStart)

	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)

	cfg.VectorStore.Name = getEnv("VECTOR_STORE_NAME", cfg.VectorStore.Name)
	cfg.VectorStore.ExpiryDays = getEnvAsInt("VECTOR_STORE_EXPIRY_DAYS", cfg.VectorStore.ExpiryDays)
	cfg.VectorStore.BatchPollMillis = getEnvAsInt("VECTOR_STORE_BATCH_POLL_MS", cfg.VectorStore.BatchPollMillis)
	cfg.VectorStore.BatchTimeoutSeconds = getEnvAsInt("VECTOR_STORE_BATCH_TIMEOUT_SECONDS", cfg.VectorStore.BatchTimeoutSeconds)
	cfg.VectorStore.BindMode = getEnv("VECTOR_STORE_BIND_MODE", cfg.VectorStore.BindMode)

	cfg.Run.PollIntervalMillis = getEnvAsInt("RUN_POLL_INTERVAL_MS", cfg.Run.PollIntervalMillis)
	cfg.Run.TimeoutSeconds = getEnvAsInt("RUN_TIMEOUT_SECONDS", cfg.Run.TimeoutSeconds)

	cfg.Ingest.AllowedExtensions = getEnvAsList("INGEST_ALLOWED_EXTENSIONS", cfg.Ingest.AllowedExtensions)
	cfg.Ingest.MaxFileMB = getEnvAsInt("INGEST_MAX_FILE_MB", cfg.Ingest.MaxFileMB)
	cfg.Ingest.UploadConcurrency = getEnvAsInt("INGEST_UPLOAD_CONCURRENCY", cfg.Ingest.UploadConcurrency)
	cfg.Ingest.ValidatePDF = getEnvAsBool("INGEST_VALIDATE_PDF", cfg.Ingest.ValidatePDF)
	cfg.Ingest.Async = getEnvAsBool("INGEST_ASYNC", cfg.Ingest.Async)
	cfg.Ingest.StagingDir = getEnv("INGEST_STAGING_DIR", cfg.Ingest.StagingDir)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.SessionTTLSeconds = getEnvAsInt("REDIS_SESSION_TTL_SECONDS", cfg.Redis.SessionTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.IngestQueue = getEnv("RABBITMQ_INGEST_QUEUE", cfg.RabbitMQ.IngestQueue)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
