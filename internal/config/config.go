package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/cache"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type TokenConfig struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
}

// Config is built once at startup and handed to constructors; nothing mutates it afterwards.
type Config struct {
	HTTP          HTTPConfig
	Primary       database.Config
	Replica       database.Config
	EnsureSchema  bool
	Redis         cache.Config
	RevokedPrefix string
	Token         TokenConfig
	Log           utilities.LogConfig
	SnowflakeNode int64
}

// HasReplica reports whether the replica points somewhere other than the primary.
func (c Config) HasReplica() bool {
	return c.Replica.DSN != "" && c.Replica.DSN != c.Primary.DSN
}

var (
	ErrMissingSecret   = errors.New("JWT_SECRET_KEY is required")
	ErrInvalidLifetime = errors.New("JWT_ACCESS_TOKEN_EXPIRE_HOURS must be positive")
)

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	// best-effort: a missing .env is fine, real env still applies
	_ = godotenv.Load(envFiles...)
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("HTTP_READ_TIMEOUT_SECONDS", 10)
	v.SetDefault("HTTP_WRITE_TIMEOUT_SECONDS", 10)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_TIMEOUT_SECONDS", 5)
	v.SetDefault("DB_REPLICA_PORT", 5432)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "revoked:")

	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRE_HOURS", 1)
	v.SetDefault("SNOWFLAKE_NODE", 1)
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config

	secret := v.GetString("JWT_SECRET_KEY")
	if secret == "" {
		return cfg, ErrMissingSecret
	}
	hours, err := intKey(v, "JWT_ACCESS_TOKEN_EXPIRE_HOURS")
	if err != nil {
		return cfg, err
	}
	if hours <= 0 {
		return cfg, ErrInvalidLifetime
	}
	cfg.Token = TokenConfig{
		Secret:   []byte(secret),
		Lifetime: time.Duration(hours) * time.Hour,
		Issuer:   v.GetString("JWT_ISSUER"),
	}

	readSec, err := intKey(v, "HTTP_READ_TIMEOUT_SECONDS")
	if err != nil {
		return cfg, err
	}
	writeSec, err := intKey(v, "HTTP_WRITE_TIMEOUT_SECONDS")
	if err != nil {
		return cfg, err
	}
	cfg.HTTP = HTTPConfig{
		Addr:         v.GetString("HTTP_ADDR"),
		ReadTimeout:  time.Duration(readSec) * time.Second,
		WriteTimeout: time.Duration(writeSec) * time.Second,
	}

	maxConns, err := intKey(v, "DB_MAX_CONNS")
	if err != nil {
		return cfg, err
	}
	dbTimeout, err := intKey(v, "DB_TIMEOUT_SECONDS")
	if err != nil {
		return cfg, err
	}
	primaryDSN := v.GetString("DATABASE_URL")
	if primaryDSN == "" {
		port, err := intKey(v, "DB_PORT")
		if err != nil {
			return cfg, err
		}
		primaryDSN = database.Endpoint{
			Host:     v.GetString("DB_HOST"),
			Port:     port,
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		}.DSN()
	}
	cfg.Primary = database.Config{
		DSN:            primaryDSN,
		MaxConns:       maxConns,
		Timeout:        time.Duration(dbTimeout) * time.Second,
		TimeZone:       v.GetString("DATABASE_TIMEZONE"),
		ClientEncoding: v.GetString("DATABASE_CLIENT_ENCODING"),
	}

	cfg.Replica = cfg.Primary
	replicaDSN := v.GetString("DB_REPLICA_URL")
	if replicaDSN == "" && v.GetString("DB_REPLICA_HOST") != "" {
		port, err := intKey(v, "DB_REPLICA_PORT")
		if err != nil {
			return cfg, err
		}
		replicaDSN = database.Endpoint{
			Host:     v.GetString("DB_REPLICA_HOST"),
			Port:     port,
			Name:     fallback(v.GetString("DB_REPLICA_NAME"), v.GetString("DB_NAME")),
			User:     fallback(v.GetString("DB_REPLICA_USER"), v.GetString("DB_USER")),
			Password: fallback(v.GetString("DB_REPLICA_PASSWORD"), v.GetString("DB_PASSWORD")),
			SSLMode:  v.GetString("DB_SSLMODE"),
		}.DSN()
	}
	if replicaDSN != "" {
		cfg.Replica.DSN = replicaDSN
	}
	cfg.EnsureSchema = v.GetString("DB_ENSURE_SCHEMA") == "1"

	redisPort, err := intKey(v, "REDIS_PORT")
	if err != nil {
		return cfg, err
	}
	redisDB, err := intKey(v, "REDIS_DB")
	if err != nil {
		return cfg, err
	}
	cfg.Redis = cache.Config{
		Host:     v.GetString("REDIS_HOST"),
		Port:     redisPort,
		DB:       redisDB,
		Password: v.GetString("REDIS_PASSWORD"),
	}
	cfg.RevokedPrefix = v.GetString("REDIS_KEY_PREFIX")

	dev := v.GetString("LOG_DEV") == "1"
	lvl := v.GetString("LOG_LEVEL")
	if lvl == "" {
		if dev {
			lvl = "debug"
		} else {
			lvl = "info"
		}
	}
	cfg.Log = utilities.LogConfig{Level: lvl, Dev: dev, File: v.GetString("LOG_FILE")}

	node, err := intKey(v, "SNOWFLAKE_NODE")
	if err != nil {
		return cfg, err
	}
	cfg.SnowflakeNode = int64(node)

	return cfg, nil
}

// intKey parses strictly; viper's GetInt silently turns garbage into 0.
func intKey(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
