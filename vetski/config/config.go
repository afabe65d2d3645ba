package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	FrontendURL string
	// PublicBaseURL is the externally reachable origin used for provider callbacks.
	PublicBaseURL string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string
	JWTSecret  string

	RedisAddr     string
	RedisPassword string
	NatsURL       string

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageRegion    string
	StorageSecure    bool

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string
	VisionModel   string
	PromptsFile   string

	TranscriptionToken         string
	TranscriptionBaseURL       string
	TranscriptionModelVersion  string
	TranscriptionDeployment    string
	TranscriptionWebhookSecret string

	// ServerURL and CLIToken are used by the vetski CLI only.
	ServerURL string
	CLIToken  string
}

func LoadConfig() Config {
	// .env is optional, real deployments use the environment
	_ = godotenv.Load()

	return Config{
		Port:          getEnv("PORT", "8000"),
		FrontendURL:   getEnv("FRONTEND_URL", "*"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),

		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", ""),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		NatsURL:       getEnv("NATS_URL", ""),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageRegion:    getEnv("STORAGE_REGION", ""),
		StorageSecure:    getEnvBool("STORAGE_SECURE", false),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:     getEnv("CHAT_MODEL", "gpt-4o"),
		VisionModel:   getEnv("VISION_MODEL", "gpt-4o"),
		PromptsFile:   getEnv("PROMPTS_FILE", ""),

		TranscriptionToken:         getEnv("REPLICATE_API_TOKEN", ""),
		TranscriptionBaseURL:       getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		TranscriptionModelVersion:  getEnv("TRANSCRIPTION_MODEL_VERSION", ""),
		TranscriptionDeployment:    getEnv("TRANSCRIPTION_DEPLOYMENT", ""),
		TranscriptionWebhookSecret: getEnv("TRANSCRIPTION_WEBHOOK_SECRET", ""),

		ServerURL: strings.TrimRight(getEnv("VETSKI_SERVER_URL", "http://localhost:8000"), "/"),
		CLIToken:  getEnv("VETSKI_TOKEN", ""),
	}
}

// Validate reports every missing required variable at once.
func (c Config) Validate() error {
	var missing []string
	if c.DBHost == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.DBUser == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// WebhookURL is the callback registered with the transcription provider.
func (c Config) WebhookURL() string {
	return c.PublicBaseURL + "/transcriptions/webhook"
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
