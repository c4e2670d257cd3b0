package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Storage
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Webhook notifications
	SlackWebhookURL   string `env:"SLACK_WEBHOOK_URL"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	// Moderation
	SpamThreshold int           `env:"SPAM_THRESHOLD" envDefault:"5"`
	SpamCooldown  time.Duration `env:"SPAM_COOLDOWN" envDefault:"60s"`

	// Analytics background loops
	PersistInterval   time.Duration `env:"PERSIST_INTERVAL" envDefault:"300s"`
	PersistRetryDelay time.Duration `env:"PERSIST_RETRY_DELAY" envDefault:"60s"`
	TrendInterval     time.Duration `env:"TREND_INTERVAL" envDefault:"3600s"`
	TrendRetryDelay   time.Duration `env:"TREND_RETRY_DELAY" envDefault:"300s"`

	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
