package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		TTL      string `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL      string `mapstructure:"url"`
		MaxConns int    `mapstructure:"max_conns"`
		MinConns int    `mapstructure:"min_conns"`
	} `mapstructure:"postgres"`
	Course struct {
		TTL         string `mapstructure:"ttl"`
		FixturesDir string `mapstructure:"fixtures_dir"`
	} `mapstructure:"course"`
	Session struct {
		IdleTimeout  string `mapstructure:"idle_timeout"`
		SweepSpec    string `mapstructure:"sweep_spec"`
		WriteTimeout string `mapstructure:"write_timeout"`
	} `mapstructure:"session"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Load reads YAML config from path, then applies environment overrides
// (COURSE_SERVER_PORT, COURSE_POSTGRES_URL, ...). A .env file next to the working
// directory is loaded first when present. A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("course.ttl", "10m")
	v.SetDefault("course.fixtures_dir", "fixtures")
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.sweep_spec", "@every 1m")
	v.SetDefault("session.write_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("COURSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"server.port", "redis.addr", "redis.password", "postgres.url", "course.fixtures_dir", "log.level"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
