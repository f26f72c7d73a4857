package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=market port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:3000"
)

type Config struct {
	HTTPPort           string
	DatabaseDSN        string
	JWTSecret          string
	JWTExpirationHours int
	CORSOrigins        string

	RedisAddr             string // empty disables the cache
	RedisPassword         string
	DashboardCacheTTLSecs int

	AdminUsername string
	AdminPassword string
	StoreName     string // receipt header
}

// Load reads configuration from the environment, an optional .env file and an
// optional configs/config.yaml, in that order of precedence.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using environment and defaults")
	}

	cfg := fromViper(v)

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN uses the default value, set your own Postgres DSN for production.")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production.")
	}
	if cfg.AdminPassword == "admin123" {
		log.Println("[WARN] ADMIN_PASSWORD uses the default value, change it after the first login.")
	}

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", "8080")
	v.SetDefault("database_dsn", defaultDSN)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiration_hours", 24)
	v.SetDefault("cors_allowed_origins", defaultCORSOrigins)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("dashboard_cache_ttl_seconds", 30)
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("store_name", "Market")
	return v
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		HTTPPort:              v.GetString("http_port"),
		DatabaseDSN:           v.GetString("database_dsn"),
		JWTSecret:             v.GetString("jwt_secret"),
		JWTExpirationHours:    v.GetInt("jwt_expiration_hours"),
		CORSOrigins:           v.GetString("cors_allowed_origins"),
		RedisAddr:             v.GetString("redis_addr"),
		RedisPassword:         v.GetString("redis_password"),
		DashboardCacheTTLSecs: v.GetInt("dashboard_cache_ttl_seconds"),
		AdminUsername:         v.GetString("admin_username"),
		AdminPassword:         v.GetString("admin_password"),
		StoreName:             v.GetString("store_name"),
	}
	if cfg.JWTExpirationHours <= 0 {
		cfg.JWTExpirationHours = 24
	}
	return cfg
}
