package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup and handed to constructors.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	Port    string
	GinMode string

	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string

	MediaDir      string
	MediaBaseURL  string
	MediaMaxBytes int64
}

// Load reads configs/.env (if present) and the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		DBHost:       get("DB_HOST", "localhost"),
		DBPort:       get("DB_PORT", "5432"),
		DBUser:       get("DB_USER", "postgres"),
		DBPassword:   get("DB_PASSWORD", "postgres"),
		DBName:       get("DB_NAME", "postgres"),
		DBSSLMode:    get("DB_SSLMODE", "disable"),
		Port:         get("PORT", "8080"),
		GinMode:      get("GIN_MODE", "debug"),
		JWTSecret:    getenv("JWT_SECRET"),
		MediaDir:     get("MEDIA_DIR", "uploads"),
		MediaBaseURL: strings.TrimRight(get("MEDIA_BASE_URL", "/media"), "/"),
	}

	ttl, err := strconv.Atoi(get("JWT_ACCESS_TOKEN_EXPIRES", "3600"))
	if err != nil {
		return nil, fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRES must be a number of seconds: %w", err)
	}
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	maxBytes, err := strconv.ParseInt(get("MEDIA_MAX_BYTES", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MEDIA_MAX_BYTES must be an integer: %w", err)
	}
	cfg.MediaMaxBytes = maxBytes

	origins := get("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails on settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	} else if c.GinMode == "release" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in release mode"))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE %q is not one of debug, release, test", c.GinMode))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_EXPIRES must be positive"))
	}
	if c.MediaMaxBytes <= 0 {
		errs = append(errs, errors.New("MEDIA_MAX_BYTES must be positive"))
	}
	if c.MediaDir == "" {
		errs = append(errs, errors.New("MEDIA_DIR is empty"))
	}
	return errors.Join(errs...)
}

// DSN returns the postgres connection string with the credentials escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}
