package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	CORSAllowedOrigins []string

	// Hosted identity provider (Session Store).
	AuthBaseURL     string
	AuthAnonKey     string
	AuthServiceKey  string
	AuthJWTSecret   string
	AuthRedirectURL string

	// Inference provider for the advice endpoints.
	GroqAPIKey       string
	GroqBaseURL      string
	GroqModelID      string
	GroqFastModelID  string
	AdviceTimeout    time.Duration
	AdviceMaxTokens  int
	GeminiAPIKey     string
	GeminiModelID    string
	BedrockModelID   string
	BedrockFallback  bool
	AdviceRateLimit  float64
	AdviceRateBurst  int
	AuthRateLimit    float64
	AuthRateBurst    int

	// Notification email.
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CatalogTTL    time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		AuthBaseURL:     strings.TrimRight(getEnv("AUTH_BASE_URL", ""), "/"),
		AuthAnonKey:     getEnv("AUTH_ANON_KEY", ""),
		AuthServiceKey:  getEnv("AUTH_SERVICE_ROLE_KEY", ""),
		AuthJWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
		AuthRedirectURL: getEnv("AUTH_REDIRECT_URL", ""),

		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModelID:     getEnv("GROQ_MODEL_ID", "llama-3.1-70b-versatile"),
		GroqFastModelID: getEnv("GROQ_FAST_MODEL_ID", "llama3-8b-8192"),
		AdviceTimeout:   getEnvAsDuration("ADVICE_TIMEOUT", 30*time.Second),
		AdviceMaxTokens: getEnvAsInt("ADVICE_MAX_TOKENS", 800),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		BedrockFallback: getEnvAsBool("BEDROCK_FALLBACK", false),
		AdviceRateLimit: getEnvAsFloat("ADVICE_RATE_LIMIT", 1),
		AdviceRateBurst: getEnvAsInt("ADVICE_RATE_BURST", 5),
		AuthRateLimit:   getEnvAsFloat("AUTH_RATE_LIMIT", 2),
		AuthRateBurst:   getEnvAsInt("AUTH_RATE_BURST", 10),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MediCare Health"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "MediCare Health"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		CatalogTTL:    getEnvAsDuration("CATALOG_CACHE_TTL", time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
