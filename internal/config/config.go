package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Env         string
	APIUrl      string
	FrontendURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret               string
	JWTAccessTokenDuration  time.Duration
	JWTRefreshTokenDuration time.Duration

	// Admin
	AdminPhone    string
	AdminPassword string
	AdminName     string

	// Security
	BcryptCost        int
	RateLimitRequests int
	RateLimitDuration time.Duration

	// OTP endpoints: per-IP daily cap on code requests (SMS cost control)
	OTPRequestsPerIPPerDay int

	// OTP debug: when true the plaintext code is echoed in API responses so
	// test automation can complete the flow without a real SMS gateway.
	// Computed once here and force-disabled in production.
	OTPDebugResponse bool

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// SMS
	SMSEnabled  bool
	SMSProvider string // "aqilas" | "clicksend"
	SMSFrom     string

	// Aqilas (primary gateway for Burkina Faso)
	AqilasAPIKey string

	// Legacy ClickSend (optional fallback)
	ClickSendUsername string
	ClickSendAPIKey   string
	ClickSendFrom     string
}

func New() *Config {
	env := getEnv("ENV", "development")

	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         env,
		APIUrl:      getEnv("API_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "scolarfaso"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "scolarfaso_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "Africa/Ouagadougou"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key"),
		JWTAccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "1h"),
		JWTRefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", "168h"),

		// Admin
		AdminPhone:    getEnv("ADMIN_PHONE", "+22670000000"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		AdminName:     getEnv("ADMIN_NAME", "Administrateur"),

		// Security
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// OTP
		OTPRequestsPerIPPerDay: getEnvAsInt("OTP_REQUESTS_PER_IP_PER_DAY", 30),
		OTPDebugResponse:       env != "production" && getEnv("OTP_DEBUG_RESPONSE", "false") == "true",

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "https://app.scolarfaso.com"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),

		// SMS
		SMSEnabled:  getEnv("SMS_ENABLED", "true") == "true",
		SMSProvider: getEnv("SMS_PROVIDER", "aqilas"),
		SMSFrom:     getEnv("SMS_FROM", "ScolarFaso"),

		// Aqilas
		AqilasAPIKey: getEnv("AQILAS_API_KEY", ""),

		// Legacy ClickSend
		ClickSendUsername: getEnv("CLICKSEND_USERNAME", ""),
		ClickSendAPIKey:   getEnv("CLICKSEND_API_KEY", ""),
		ClickSendFrom:     getEnv("CLICKSEND_FROM", "ScolarFaso"),
	}
}

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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
