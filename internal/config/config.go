package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	ShopName      string

	DatabaseURL string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int

	AuthSecret            string
	AccessTokenTTLMinutes int
	OwnerPassword         string

	LicenseSecret string
	TrialDays     int
	WeekStartsOn  time.Weekday

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads configuration from the environment, after loading an
// optional .env file for local development.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	reportTTL, err := strconv.Atoi(getEnv("REPORT_CACHE_TTL_SECONDS", "30"))
	if err != nil || reportTTL < 1 {
		reportTTL = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	trialDays, err := strconv.Atoi(getEnv("TRIAL_DAYS", "5"))
	if err != nil || trialDays < 1 {
		trialDays = 5
	}

	return Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		ShopName:      getEnv("SHOP_NAME", "Dastak"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		ReportTTLSeconds: reportTTL,

		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		OwnerPassword:         strings.TrimSpace(os.Getenv("OWNER_PASSWORD")),

		LicenseSecret: strings.TrimSpace(getEnv("LICENSE_SECRET", "dev-license-secret")),
		TrialDays:     trialDays,
		WeekStartsOn:  parseWeekday(os.Getenv("WEEK_STARTS_ON")),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "dastak-backups"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) BackupConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

func parseWeekday(raw string) time.Weekday {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sunday":
		return time.Sunday
	case "saturday":
		return time.Saturday
	case "", "monday":
		return time.Monday
	default:
		log.Printf("[config] unknown WEEK_STARTS_ON %q, using monday", raw)
		return time.Monday
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
