package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	Port        string
	JWTSecret   string
	LogMode     string
	CORSOrigins []string

	AnthropicAPIKey string
	AnthropicModel  string
	MockCoach       bool

	// DisplayedAchievements is the default badge count on the dashboard.
	DisplayedAchievements int
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "guidely"),
		DBPassword: getEnv("DB_PASSWORD", "guidely"),
		DBName:     getEnv("DB_NAME", "guidely"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "guidely-dev-signing-key"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		MockCoach:       getEnv("MOCK_COACH", "false") == "true",

		DisplayedAchievements: getEnvInt("DISPLAYED_ACHIEVEMENTS", 3),
	}, nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSSLMode
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
