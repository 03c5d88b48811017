package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Ai         AIConfig
	Profiling  ProfilingConfig
	Moderation ModerationConfig
	Group      GroupConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	PromptDir          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "gemini"
	LLMModel      string // e.g. "llama3", "gemini-2.0-flash"
	OllamaBaseURL string
	GeminiAPIKey  string
	Timeout       time.Duration
}

type ProfilingConfig struct {
	MinCompleteness float64
	CriticalCap     float64
	SessionTTL      time.Duration
	SessionStore    string // "memory" or "redis"
	// AutoComplete finishes the session as soon as it qualifies.
	AutoComplete bool
}

type ModerationConfig struct {
	ImpasseThreshold int
	MinRoundSize     int
	AddressPhrases   []string
	HistoryWindow    int
}

type GroupConfig struct {
	RoomCodeLength   int
	RoomCodeAttempts int
	InboxSize        int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			PromptDir:          getEnv("PROMPT_DIR", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:  getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Profiling: ProfilingConfig{
			MinCompleteness: getEnvAsFloat("PROFILE_MIN_COMPLETENESS", 0.8),
			CriticalCap:     getEnvAsFloat("PROFILE_CRITICAL_CAP", 0.79),
			SessionTTL:      getEnvAsDuration("PROFILE_SESSION_TTL", time.Hour),
			SessionStore:    getEnv("PROFILE_SESSION_STORE", "memory"),
			AutoComplete:    getEnvAsBool("PROFILE_AUTO_COMPLETE", true),
		},
		Moderation: ModerationConfig{
			ImpasseThreshold: getEnvAsInt("MODERATION_IMPASSE_THRESHOLD", 6),
			MinRoundSize:     getEnvAsInt("MODERATION_MIN_ROUND_SIZE", 2),
			AddressPhrases:   getEnvAsList("MODERATION_ADDRESS_PHRASES", nil),
			HistoryWindow:    getEnvAsInt("MODERATION_HISTORY_WINDOW", 20),
		},
		Group: GroupConfig{
			RoomCodeLength:   getEnvAsInt("ROOM_CODE_LENGTH", 6),
			RoomCodeAttempts: getEnvAsInt("ROOM_CODE_ATTEMPTS", 10),
			InboxSize:        getEnvAsInt("ROOM_INBOX_SIZE", 64),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value. Unset means fallback.
func getEnvAsList(key string, fallback []string) []string {
	strValue, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(strValue) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
