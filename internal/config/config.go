package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port    string
	Env     string
	LogMode string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// LLM
	LLMProvider           string
	LLMConcurrentReqs     int
	GeminiAPIKey          string
	GeminiModel           string
	GroqAPIKey            string
	GroqModel             string
	GroqBaseURL           string
	GenerateRatePerMinute int

	// Study
	StatsTimezone       string
	QuizCacheTTLMinutes int
	ReminderWorkers     int

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		LogMode:               getEnvOrDefault("LOG_MODE", "dev"),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		MigrationsDir:         getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		JWTSecret:             mustGetEnv("JWT_SECRET"),
		LLMProvider:           strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "gemini")),
		LLMConcurrentReqs:     getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:            getEnvOrDefault("GROQ_API_KEY", ""),
		GroqModel:             getEnvOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:           getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GenerateRatePerMinute: getEnvAsIntOrDefault("GENERATE_RATE_LIMIT_PER_MIN", 10),
		StatsTimezone:         getEnvOrDefault("STATS_TIMEZONE", "Local"),
		QuizCacheTTLMinutes:   getEnvAsIntOrDefault("QUIZ_CACHE_TTL_MINUTES", 60),
		ReminderWorkers:       getEnvAsIntOrDefault("REMINDER_WORKERS", 2),
		SMTPHost:              getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:              getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:              getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:              getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:              getEnvOrDefault("SMTP_FROM", "noreply@studycoach.app"),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}

	return cfg
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case "groq":
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER=groq")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (expected gemini or groq)", c.LLMProvider)
	}
	if c.LLMConcurrentReqs < 1 {
		return fmt.Errorf("LLM_CONCURRENT_REQUESTS must be at least 1")
	}
	return nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
