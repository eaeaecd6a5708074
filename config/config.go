package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret keeps local development working without any setup. In
// production the real secret is mandatory and startup fails without it.
const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env                  string
	Port                 string
	DBURL                string
	JWTSecret            string
	SessionTTL           time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	PasswordMinLength    int
	AppBaseURL           string
	ResendAPIKey         string
	EmailSender          string
	MaxLoginAttempts     int
	LoginAttemptWindow   time.Duration
}

func Load() *Config {
	// Missing .env is fine; everything can come from the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                  getEnv("ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DBURL:                mustGetEnv("DB_URL"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 168*time.Hour),
		VerificationTokenTTL: getEnvAsDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:        getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		PasswordMinLength:    getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:3000"),
		ResendAPIKey:         getEnv("RESEND_API_KEY", ""),
		EmailSender:          getEnv("EMAIL_SENDER", "EssayHuzz <noreply@essayhuzz.com>"),
		MaxLoginAttempts:     getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
		LoginAttemptWindow:   getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %s", key, defaultVal)
		return defaultVal
	}
	return val
}
