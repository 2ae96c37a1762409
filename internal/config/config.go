package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Printful PrintfulConfig
	Storage  StorageConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// PrintfulConfig configures the remote catalog client.
type PrintfulConfig struct {
	BaseURL        string
	Token          string
	StoreID        string
	Timeout        time.Duration
	RequestsPerMin int
}

// StorageConfig configures the mockup asset store.
type StorageConfig struct {
	Bucket  string
	CDNBase string
}

// SyncConfig configures catalog sync orchestration.
type SyncConfig struct {
	Secret      string // shared secret for the automation trigger
	Concurrency int    // bounded parallelism for per-product detail fetches
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("PRINTFUL_BASE_URL", "https://api.printful.com")
	viper.SetDefault("PRINTFUL_TIMEOUT_SECONDS", 30)
	viper.SetDefault("PRINTFUL_REQUESTS_PER_MIN", 120)
	viper.SetDefault("SYNC_CONCURRENCY", 4)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Printful: PrintfulConfig{
			BaseURL:        viper.GetString("PRINTFUL_BASE_URL"),
			Token:          viper.GetString("PRINTFUL_TOKEN"),
			StoreID:        viper.GetString("PRINTFUL_STORE_ID"),
			Timeout:        time.Duration(viper.GetInt("PRINTFUL_TIMEOUT_SECONDS")) * time.Second,
			RequestsPerMin: viper.GetInt("PRINTFUL_REQUESTS_PER_MIN"),
		},
		Storage: StorageConfig{
			Bucket:  viper.GetString("STORAGE_BUCKET"),
			CDNBase: viper.GetString("STORAGE_CDN_BASE"),
		},
		Sync: SyncConfig{
			Secret:      viper.GetString("SYNC_SECRET"),
			Concurrency: viper.GetInt("SYNC_CONCURRENCY"),
		},
	}
}
