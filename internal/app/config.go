package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/coursemart-backend/internal/data/cache"
	"github.com/yungbote/coursemart-backend/internal/data/db"
	"github.com/yungbote/coursemart-backend/internal/observability"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type Config struct {
	Env         string
	LogMode     string
	HTTPAddr    string
	DB          db.Config
	Redis       cache.Config
	Auth        services.AuthConfig
	CORSOrigins []string
	Otel        observability.OtelConfig
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.mode", "development")
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("db.driver", db.DriverPostgres)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.name", "coursemart")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("sqlite.path", "coursemart.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.listing_ttl", cache.DefaultListingTTL)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("cors.allow_origins", "")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "coursemart")
	v.SetDefault("otel.version", "dev")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sampler_ratio", 0.1)
}

// LoadConfig layers defaults, an optional config.yaml and the environment.
// Nested keys map to upper snake case variables, e.g. jwt.secret_key is
// JWT_SECRET_KEY.
func LoadConfig() (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if dir := strings.TrimSpace(os.Getenv("COURSEMART_CONFIG_DIR")); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("otel.headers", "OTEL_EXPORTER_OTLP_HEADERS")
	_ = v.BindEnv("otel.insecure", "OTEL_EXPORTER_OTLP_INSECURE")
	_ = v.BindEnv("otel.sampler_ratio", "OTEL_SAMPLER_RATIO")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:      v.GetString("env"),
		LogMode:  v.GetString("log.mode"),
		HTTPAddr: v.GetString("http.addr"),
		DB: db.Config{
			Driver:       strings.ToLower(v.GetString("db.driver")),
			Host:         v.GetString("postgres.host"),
			Port:         v.GetInt("postgres.port"),
			User:         v.GetString("postgres.user"),
			Password:     v.GetString("postgres.password"),
			Name:         v.GetString("postgres.name"),
			SSLMode:      v.GetString("postgres.sslmode"),
			Path:         v.GetString("sqlite.path"),
			MaxOpenConns: v.GetInt("db.max_open_conns"),
			MaxIdleConns: v.GetInt("db.max_idle_conns"),
		},
		Redis: cache.Config{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("cache.listing_ttl"),
		},
		Auth: services.AuthConfig{
			SecretKey:  v.GetString("jwt.secret_key"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		CORSOrigins: splitList(v.GetString("cors.allow_origins")),
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("otel.enabled"),
			ServiceName: v.GetString("otel.service_name"),
			Environment: v.GetString("env"),
			Version:     v.GetString("otel.version"),
			Endpoint:    v.GetString("otel.endpoint"),
			Headers:     observability.ParseHeaders(v.GetString("otel.headers")),
			Insecure:    v.GetBool("otel.insecure"),
			SampleRatio: v.GetFloat64("otel.sampler_ratio"),
		},
	}
	if cfg.DB.Driver != db.DriverPostgres && cfg.DB.Driver != db.DriverSQLite {
		return Config{}, fmt.Errorf("unsupported db.driver %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.Auth.SecretKey) == "" {
		return Config{}, errors.New("jwt.secret_key (JWT_SECRET_KEY) is required")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
