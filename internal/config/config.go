package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/crmdash/internal/analysis"
	"github.com/rpattn/crmdash/internal/db"
	"github.com/rpattn/crmdash/internal/ingestion"
	"github.com/rpattn/crmdash/internal/newsfeed"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const mb = 1024 * 1024

// Config is the full application configuration.
type Config struct {
	Database db.Config
	HTTP     HTTPConfig
	Import   ImportConfig
	LLM      analysis.Config
	News     NewsConfig
	Auth     AuthConfig
	Log      LogConfig
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

// ImportConfig bounds uploaded files.
type ImportConfig struct {
	MaxFileBytes int
	MaxRows      int
}

// Limits converts the import section for the ingestion service.
func (c ImportConfig) Limits() ingestion.Limits {
	return ingestion.Limits{MaxBytes: c.MaxFileBytes, MaxRows: c.MaxRows}
}

// NewsConfig configures the news feed client.
type NewsConfig struct {
	FeedURL  string
	CacheDir string
	MaxItems int
	Timeout  time.Duration
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	SessionSecret string
	CookieName    string
	TokenTTL      time.Duration
}

type LogConfig struct {
	Debug bool
}

var ErrMissingSecret = errors.New("auth.session_secret is required")

// Validate checks the settings the HTTP server cannot start without.
func (c Config) Validate() error {
	if c.Auth.SessionSecret == "" {
		return ErrMissingSecret
	}
	if c.Import.MaxFileBytes <= 0 || c.Import.MaxRows <= 0 {
		return fmt.Errorf("import limits must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := db.DefaultConfig()
	v.SetDefault("database.host", d.Host)
	v.SetDefault("database.port", d.Port)
	v.SetDefault("database.user", d.User)
	v.SetDefault("database.password", d.Password)
	v.SetDefault("database.dbname", d.DBName)
	v.SetDefault("database.sslmode", d.SSLMode)
	v.SetDefault("database.max_conns", d.MaxConns)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 120*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_body_mb", 50)

	v.SetDefault("import.max_file_mb", 25)
	v.SetDefault("import.max_rows", 5000)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_url", analysis.DefaultAPIURL)
	v.SetDefault("llm.model", analysis.DefaultModel)
	v.SetDefault("llm.temperature", analysis.DefaultTemperature)
	v.SetDefault("llm.timeout", analysis.DefaultTimeout)

	v.SetDefault("news.feed_url", newsfeed.DefaultFeedURL)
	v.SetDefault("news.cache_dir", "")
	v.SetDefault("news.max_items", newsfeed.DefaultMaxItems)
	v.SetDefault("news.timeout", 15*time.Second)

	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.cookie_name", "crmdash_session")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.debug", false)
}

// Load reads .env, then config.yaml from configPath, then CRMDASH_* environment variables
// (database.host is CRMDASH_DATABASE_HOST). Missing files are not an error.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("CRMDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// the LLM key is commonly provided without the prefix
	_ = v.BindEnv("llm.api_key", "CRMDASH_LLM_API_KEY", "LLM_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Database: db.Config{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxConns:        v.GetInt32("database.max_conns"),
			ConnectAttempts: db.DefaultConfig().ConnectAttempts,
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			CORSOrigins:  splitList(v.GetStringSlice("http.cors_origins")),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
			MaxBodyBytes: v.GetInt64("http.max_body_mb") * mb,
		},
		Import: ImportConfig{
			MaxFileBytes: v.GetInt("import.max_file_mb") * mb,
			MaxRows:      v.GetInt("import.max_rows"),
		},
		LLM: analysis.Config{
			APIKey:      v.GetString("llm.api_key"),
			APIURL:      v.GetString("llm.api_url"),
			Model:       v.GetString("llm.model"),
			Temperature: v.GetFloat64("llm.temperature"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		News: NewsConfig{
			FeedURL:  v.GetString("news.feed_url"),
			CacheDir: v.GetString("news.cache_dir"),
			MaxItems: v.GetInt("news.max_items"),
			Timeout:  v.GetDuration("news.timeout"),
		},
		Auth: AuthConfig{
			SessionSecret: v.GetString("auth.session_secret"),
			CookieName:    v.GetString("auth.cookie_name"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
		},
		Log: LogConfig{Debug: v.GetBool("log.debug")},
	}
	return cfg, nil
}

func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
