package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	StoreBackend     string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	SQLitePath       string
	FileStorePath    string
	GraphQLURL       string
	GraphQLAPIKey    string
	OpenAIKey        string
	OpenAIModel      string
	TelegramToken    string
	TelegramMode     string
	TwilioAuthToken  string
	TwilioWebhookURL string
	ServerHost       string
	ServerPort       string
	BotName          string
	SystemPrompt     string
	RetentionDays    int
	TokenBudget      int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found")
	}

	return &Config{
		StoreBackend:     getEnv("STORE_BACKEND", "file"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "gepeto"),
		SQLitePath:       getEnv("SQLITE_PATH", "gepeto.db"),
		FileStorePath:    getEnv("FILE_STORE_PATH", "message_gepeto.json"),
		GraphQLURL:       getEnv("GRAPHQL_URL", ""),
		GraphQLAPIKey:    getEnv("GRAPHQL_API_KEY", ""),
		OpenAIKey:        getEnv("OPENAI_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		TelegramToken:    getEnv("TELEGRAM_TOKEN", ""),
		TelegramMode:     getEnv("TELEGRAM_MODE", "webhook"),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),
		ServerHost:       getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BotName:          getEnv("BOT_NAME", "gepeto"),
		SystemPrompt:     getEnv("SYSTEM_PROMPT", "Você é o Gepeto, um amigo no whatsapp"),
		RetentionDays:    getEnvInt("HISTORY_RETENTION_DAYS", 7),
		TokenBudget:      getEnvInt("TOKEN_BUDGET", 4096),
	}
}

// Retention converts the configured retention window to a duration.
// Zero means the full history is kept.
func (c *Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("invalid value %q for %s, using %d", value, key, defaultValue)
		return defaultValue
	}
	return n
}
