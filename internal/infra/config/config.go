package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов. Загружается один раз и дальше только читается.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Asia/Seoul"`
	Port        int    `envconfig:"PORT" default:"3000"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Slack struct {
		BotToken       string `envconfig:"SLACK_BOT_TOKEN"`
		SigningSecret  string `envconfig:"SLACK_SIGNING_SECRET"`
		SocketToken    string `envconfig:"SLACK_SOCKET_TOKEN"`
		TriggerKeyword string `envconfig:"SLACK_TRIGGER_KEYWORD" default:"요약"`
		ShortcutID     string `envconfig:"SLACK_SHORTCUT_CALLBACK_ID" default:"thread_summary"`
		SearchCommand  string `envconfig:"SLACK_SEARCH_COMMAND" default:"/search"`
		ChatCommand    string `envconfig:"SLACK_CHAT_COMMAND" default:"/chat"`
	} `envconfig:""`

	LLM struct {
		Provider           string  `envconfig:"LLM_PROVIDER" default:"gemini"`
		MaxTokens          int     `envconfig:"LLM_MAX_TOKENS" default:"4096"`
		SummaryTemperature float64 `envconfig:"LLM_SUMMARY_TEMPERATURE" default:"0.3"`
		ChatTemperature    float64 `envconfig:"LLM_CHAT_TEMPERATURE" default:"0.7"`
		ChatMaxTokens      int     `envconfig:"LLM_CHAT_MAX_TOKENS" default:"2048"`
	} `envconfig:""`

	Gemini struct {
		APIKey string `envconfig:"GEMINI_API_KEY"`
		Model  string `envconfig:"GEMINI_MODEL"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	} `envconfig:""`

	AWS struct {
		Region          string `envconfig:"AWS_REGION"`
		BedrockModelID  string `envconfig:"BEDROCK_MODEL_ID"`
		BedrockModelARN string `envconfig:"BEDROCK_MODEL_ARN"`
		KnowledgeBaseID string `envconfig:"BEDROCK_KNOWLEDGE_BASE_ID"`
		S3Bucket        string `envconfig:"S3_BUCKET_NAME"`
		S3Prefix        string `envconfig:"S3_PREFIX"`
	} `envconfig:""`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"memory"`
		Summary     string `envconfig:"SUMMARY_QUEUE_KEY" default:"summary_jobs"`
		RabbitURL   string `envconfig:"RABBITMQ_URL"`
		Concurrency int    `envconfig:"WORKER_CONCURRENCY" default:"4"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	PGDSN     string `envconfig:"PG_DSN"`

	Limits struct {
		NotifyMaxRunes  int           `envconfig:"NOTIFY_MAX_RUNES" default:"3000"`
		NotifyKeepRunes int           `envconfig:"NOTIFY_KEEP_RUNES" default:"2900"`
		TriggerLockTTL  time.Duration `envconfig:"TRIGGER_LOCK_TTL" default:"2m"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения. Файл .env, если он есть, читается первым.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// SocketMode сообщает, что транспорт Slack работает через Socket Mode.
func (c AppConfig) SocketMode() bool {
	return strings.TrimSpace(c.Slack.SocketToken) != ""
}

// Location возвращает часовой пояс для отображения времени.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate проверяет поля, обязательные для выбранных режимов.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Slack.BotToken == "" {
		errs = append(errs, errors.New("SLACK_BOT_TOKEN is required"))
	}
	if !c.SocketMode() && c.Slack.SigningSecret == "" {
		errs = append(errs, errors.New("SLACK_SIGNING_SECRET is required in HTTP mode"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required"))
		}
		if c.Gemini.Model == "" {
			errs = append(errs, errors.New("GEMINI_MODEL is required"))
		}
	case "bedrock":
		if c.AWS.Region == "" {
			errs = append(errs, errors.New("AWS_REGION is required"))
		}
		if c.AWS.BedrockModelID == "" {
			errs = append(errs, errors.New("BEDROCK_MODEL_ID is required"))
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.AWS.KnowledgeBaseID != "" && !strings.EqualFold(c.LLM.Provider, "bedrock") {
		if c.AWS.Region == "" {
			errs = append(errs, errors.New("AWS_REGION is required for BEDROCK_KNOWLEDGE_BASE_ID"))
		}
		if c.AWS.BedrockModelID == "" && c.AWS.BedrockModelARN == "" {
			errs = append(errs, errors.New("BEDROCK_MODEL_ID or BEDROCK_MODEL_ARN is required for BEDROCK_KNOWLEDGE_BASE_ID"))
		}
	}
	if c.AWS.S3Bucket != "" && c.AWS.Region == "" {
		errs = append(errs, errors.New("AWS_REGION is required for S3 archive"))
	}
	switch strings.ToLower(c.Queues.Backend) {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis queue"))
		}
	case "rabbitmq":
		if c.Queues.RabbitURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for rabbitmq queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.Queues.Backend))
	}
	if c.Limits.NotifyKeepRunes > c.Limits.NotifyMaxRunes {
		errs = append(errs, errors.New("NOTIFY_KEEP_RUNES must not exceed NOTIFY_MAX_RUNES"))
	}
	return errors.Join(errs...)
}
