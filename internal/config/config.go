package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Cache      CacheConfig
	Cloudinary CloudinaryConfig
	GoogleFit  GoogleFitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	HealthWaitTimeout  time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BCryptCost      int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Provider        string // "memory" or "redis"
	RedisURL        string
	TTL             time.Duration
	MaxKeys         int
	CleanupInterval time.Duration
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName      string
	APIKey         string
	APISecret      string
	UploadFolder   string
	MaxFileSize    int64
	AllowedFormats []string
	MaxRetries     int
}

// GoogleFitConfig holds the Google Fit OAuth configuration
type GoogleFitConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateTTL     time.Duration
}

// Load loads configuration from environment variables with validation
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server:     loadServerConfig(env),
		Database:   loadDatabaseConfig(env),
		Auth:       loadAuthConfig(),
		Cache:      loadCacheConfig(),
		Cloudinary: loadCloudinaryConfig(),
		GoogleFit:  loadGoogleFitConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig(env string) ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	case "staging":
		defaultMaxOpen = 25
		defaultMaxIdle = 10
		defaultConnLifetime = 10 * time.Minute
	default: // development
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                os.Getenv("DATABASE_URL"),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		HealthWaitTimeout:  getDurationEnv("DB_HEALTH_WAIT_TIMEOUT", 30*time.Second),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		BCryptCost:      getIntEnv("BCRYPT_COST", 12),
	}
}

func loadCacheConfig() CacheConfig {
	provider := getEnv("CACHE_PROVIDER", "memory")
	if os.Getenv("REDIS_URL") != "" {
		provider = getEnv("CACHE_PROVIDER", "redis")
	}

	return CacheConfig{
		Provider:        provider,
		RedisURL:        os.Getenv("REDIS_URL"),
		TTL:             getDurationEnv("CACHE_TTL", 15*time.Minute),
		MaxKeys:         getIntEnv("CACHE_MAX_KEYS", 10000),
		CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	formats := getEnv("CLOUDINARY_ALLOWED_FORMATS", "jpg,jpeg,png,webp")

	return CloudinaryConfig{
		CloudName:      os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:         os.Getenv("CLOUDINARY_API_KEY"),
		APISecret:      os.Getenv("CLOUDINARY_API_SECRET"),
		UploadFolder:   getEnv("CLOUDINARY_UPLOAD_FOLDER", "thetrek"),
		MaxFileSize:    getInt64Env("CLOUDINARY_MAX_FILE_SIZE", 10*1024*1024),
		AllowedFormats: strings.Split(formats, ","),
		MaxRetries:     getIntEnv("CLOUDINARY_MAX_RETRIES", 3),
	}
}

func loadGoogleFitConfig() GoogleFitConfig {
	return GoogleFitConfig{
		ClientID:     os.Getenv("GOOGLE_FIT_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_FIT_CLIENT_SECRET"),
		RedirectURL:  getEnv("GOOGLE_FIT_REDIRECT_URL", ""),
		StateTTL:     getDurationEnv("GOOGLE_FIT_STATE_TTL", 10*time.Minute),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Auth.Validate(c.Server.Environment); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}
	return nil
}

// Validate validates database configuration
func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}
	if d.SlowQueryThreshold <= 0 {
		return fmt.Errorf("SlowQueryThreshold must be positive")
	}
	return nil
}

// Validate validates auth configuration
func (a *AuthConfig) Validate(env string) error {
	if a.JWTSecret == "" && env == "production" {
		return fmt.Errorf("JWT_SECRET must be set for production")
	}
	if a.BCryptCost < 4 || a.BCryptCost > 31 {
		return fmt.Errorf("BCryptCost must be between 4 and 31")
	}
	if a.AccessTokenTTL <= 0 {
		return fmt.Errorf("AccessTokenTTL must be positive")
	}
	if a.RefreshTokenTTL <= a.AccessTokenTTL {
		return fmt.Errorf("RefreshTokenTTL must be longer than AccessTokenTTL")
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache provider: %s", c.Provider)
	}
	if c.Provider == "redis" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when cache provider is redis")
	}
	return nil
}

// GoogleFitEnabled reports whether the Google Fit integration is configured
func (c *Config) GoogleFitEnabled() bool {
	return c.GoogleFit.ClientID != "" && c.GoogleFit.ClientSecret != ""
}

// UploadsEnabled reports whether Cloudinary uploads are configured
func (c *Config) UploadsEnabled() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.APIKey != ""
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
