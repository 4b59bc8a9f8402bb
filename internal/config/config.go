package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Firebase      FirebaseConfig      `mapstructure:"firebase"`
	Cache         CacheConfig         `mapstructure:"cache"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`

	// TrustProxy keys view counting by X-Forwarded-For.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// StorageConfig selects the SQL backend. DSN is used for postgres, Path for sqlite.
type StorageConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
	Path string `mapstructure:"path"`
}

// RedisConfig holds Redis settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig holds search settings. An empty URL disables indexing.
type ElasticsearchConfig struct {
	URL   string `mapstructure:"url"`
	Index string `mapstructure:"index"`
}

// AuthConfig configures token issuing and verification. When JWKSURL is set,
// bearer tokens are verified against the hosted identity provider instead of
// the local secret.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	JWKSURL    string        `mapstructure:"jwks_url"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// FirebaseConfig holds push notification settings. An empty path disables push.
type FirebaseConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

// CacheConfig holds cache timings
type CacheConfig struct {
	PostTTL    time.Duration `mapstructure:"post_ttl"`
	ViewWindow time.Duration `mapstructure:"view_window"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// LoadConfig loads configuration from .env, an optional config file and
// environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Println("No config file found, using defaults and environment variables")
	}

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("storage.type", "postgres")
	v.SetDefault("storage.dsn", "host=localhost port=5432 user=boarduser password=boardpass dbname=boarddb sslmode=disable")
	v.SetDefault("storage.path", "./data/board.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "posts")
	v.SetDefault("auth.jwt_secret", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "community-board")
	v.SetDefault("auth.access_ttl", "1h")
	v.SetDefault("auth.refresh_ttl", "720h")
	v.SetDefault("cache.post_ttl", "5m")
	v.SetDefault("cache.view_window", "2m")
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.trust_proxy", "TRUST_PROXY")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.dsn", "DATABASE_URL")
	v.BindEnv("storage.path", "SQLITE_PATH")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("elasticsearch.url", "ELASTICSEARCH_URL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.jwks_url", "JWKS_URL")
	v.BindEnv("firebase.credentials_path", "FIREBASE_CREDENTIALS_PATH")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
