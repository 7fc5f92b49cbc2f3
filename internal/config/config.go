package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Env         string
	Port        int
	ServiceName string

	StoreDriver   string // "postgres" | "memory"
	DBURL         string
	DBAutoMigrate bool
	DBMaxConns    int

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRateLimit  int
	AuthRateWindow time.Duration

	Captioner      string // "huggingface" | "static"
	HFAPIKey       string
	HFModelURL     string
	CaptionTimeout time.Duration
	CaptionRetries int

	StorageDriver string // "local" | "s3"
	UploadDir     string
	S3            S3Config

	OTLPEndpoint     string
	TraceSampleRatio float64
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string
}

const defaultHFModelURL = "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large"

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	l := &loader{}

	cfg := Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        l.int("PORT", 5000),
		ServiceName: getEnv("SERVICE_NAME", "captionhub-api"),

		StoreDriver:   getEnv("STORE_DRIVER", "postgres"),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		DBAutoMigrate: l.bool("DB_AUTO_MIGRATE", true),
		DBMaxConns:    l.int("DB_MAX_CONNS", 10),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     l.duration("JWT_TTL", 7*24*time.Hour),
		BcryptCost: l.int("BCRYPT_COST", 10),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       l.int("REDIS_DB", 0),

		AuthRateLimit:  l.int("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: l.duration("AUTH_RATE_WINDOW", time.Minute),

		Captioner:      getEnv("CAPTIONER", "huggingface"),
		HFAPIKey:       os.Getenv("HUGGINGFACE_API_KEY"),
		HFModelURL:     getEnv("HUGGINGFACE_MODEL_URL", defaultHFModelURL),
		CaptionTimeout: l.duration("CAPTION_TIMEOUT", 30*time.Second),
		CaptionRetries: l.int("CAPTION_RETRIES", 3),

		StorageDriver: getEnv("STORAGE_DRIVER", "local"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		S3: S3Config{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			UsePathStyle:  l.bool("S3_PATH_STYLE", false),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},

		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio: l.float("OTEL_TRACES_SAMPLER_RATIO", 1),
	}

	if l.err != nil {
		return Config{}, l.err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}

	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver)
	}

	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER: unknown driver %q", c.StorageDriver)
	}

	switch c.Captioner {
	case "static":
	case "huggingface":
		if c.HFAPIKey == "" {
			return errors.New("HUGGINGFACE_API_KEY is required when CAPTIONER=huggingface")
		}
	default:
		return fmt.Errorf("CAPTIONER: unknown captioner %q", c.Captioner)
	}

	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}

	return nil
}

// DatabaseURL resolves only the database settings, for tools such as the
// migrate command that must run without the API's secrets.
func DatabaseURL() string {
	_ = godotenv.Load()
	return getEnv("DATABASE_URL", buildDBURL())
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "captionhub")
	pass := getEnv("DB_PASSWORD", "captionhub")
	name := getEnv("DB_NAME", "captionhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// loader keeps the first parse error so Load can report it once.
type loader struct {
	err error
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (l *loader) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, err)
		return fallback
	}

	return num
}

func (l *loader) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, err)
		return fallback
	}

	return b
}

func (l *loader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(key, err)
		return fallback
	}

	return f
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, err)
		return fallback
	}

	return d
}
