package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret   string
	AdminAPIKey string

	// RedisURL is optional; selections are kept in memory when unset.
	RedisURL string

	StatsLocation *time.Location

	QuizSessionTTL    time.Duration
	DailyQuestionCron string
	SessionSweepCron  string

	MockGenerator   bool
	AnthropicAPIKey string
	AnthropicModel  string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using process environment")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "certprep_user"),
		DBPassword:        getEnv("DB_PASSWORD", "certprep_password"),
		DBName:            getEnv("DB_NAME", "certprep"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		JWTSecret:         getEnv("JWT_SECRET", "certprep-dev-signing-key"),
		AdminAPIKey:       getEnv("ADMIN_API_KEY", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		StatsLocation:     getLocation("STATS_TIMEZONE", time.UTC),
		QuizSessionTTL:    getDuration("QUIZ_SESSION_TTL", 2*time.Hour),
		DailyQuestionCron: getEnv("DAILY_QUESTION_CRON", "5 0 * * *"),
		SessionSweepCron:  getEnv("SESSION_SWEEP_CRON", "@every 10m"),
		MockGenerator:     getBool("MOCK_GENERATOR", false),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a boolean, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] %s=%q is not a valid duration, using %v", key, v, fallback)
		return fallback
	}
	return d
}

func getLocation(key string, fallback *time.Location) *time.Location {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a known time zone, using %s", key, v, fallback)
		return fallback
	}
	return loc
}
