package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PoolMaxConns is deliberately not configurable.
const PoolMaxConns = 5

type Config struct {
	Env  string
	Port int

	DBURL            string
	DBAcquireTimeout time.Duration

	JWTSecret           string
	JWTAccessTTLMinutes int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTELEndpoint string

	CORSAllowedOrigins []string
	AuthRateLimit      int
}

// Load reads configuration from the environment (and an optional .env file).
// Any missing required key is reported in the returned error; the caller is
// expected to stop the process.
func Load() (Config, error) {
	// .env is optional, real environment wins.
	_ = godotenv.Load()

	var missing []string

	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	secret := required("JWT_SECRET")
	host := required("DB_HOST")
	user := required("DB_USER")
	pass := required("DB_PASSWORD")
	name := required("DB_NAME")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, err
	}

	ttl, err := getEnvInt("JWT_ACCESS_TTL_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}

	if ttl <= 0 {
		return Config{}, errors.New("JWT_ACCESS_TTL_MINUTES must be positive")
	}

	acquireMS, err := getEnvInt("DB_ACQUIRE_TIMEOUT_MS", 2000)
	if err != nil {
		return Config{}, err
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}

	rateLimit, err := getEnvInt("AUTH_RATE_LIMIT", 20)
	if err != nil {
		return Config{}, err
	}

	if rateLimit <= 0 {
		return Config{}, errors.New("AUTH_RATE_LIMIT must be positive")
	}

	return Config{
		Env:                 getEnv("APP_ENV", "dev"),
		Port:                port,
		DBURL:               buildDBURL(host, getEnv("DB_PORT", "5432"), user, pass, name, getEnv("DB_SSLMODE", "disable")),
		DBAcquireTimeout:    time.Duration(acquireMS) * time.Millisecond,
		JWTSecret:           secret,
		JWTAccessTTLMinutes: ttl,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             redisDB,
		OTELEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AuthRateLimit:       rateLimit,
	}, nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL(host, port, user, pass, name, ssl string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}

	return u.String()
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

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return num, nil
}

func splitList(raw string) []string {
	out := make([]string, 0)

	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
