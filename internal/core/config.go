package core

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/breeew/otterly-api/internal/core/srv"
	"github.com/breeew/otterly-api/pkg/types"
)

// LoadConfig reads the toml file at path, or the environment when path is empty,
// and refuses a config the service cannot run with.
func LoadConfig(path string) (CoreConfig, error) {
	var (
		conf CoreConfig
		err  error
	)
	if path == "" {
		conf = LoadBaseConfigFromENV()
	} else {
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return conf, rerr
		}
		if conf, err = LoadBaseConfig(raw); err != nil {
			return conf, err
		}
	}
	return conf, conf.Validate()
}

func (c CoreConfig) Validate() error {
	return c.Security.Validate()
}

func LoadBaseConfig(raw []byte) (CoreConfig, error) {
	var conf CoreConfig
	if err := toml.Unmarshal(raw, &conf); err != nil {
		return conf, err
	}
	conf.bytes = raw
	return conf, nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string   `toml:"addr"`
	Log      Log      `toml:"log"`
	Postgres PGConfig `toml:"postgres"`
	Redis    Redis    `toml:"redis"`

	AI srv.AIConfig `toml:"ai"`

	Security Security `toml:"security"`
	Reply    Reply    `toml:"reply"`

	bytes []byte
}

type Security struct {
	JWTSecret string `toml:"jwt_secret"`
	// TokenTTL in hours, default 720
	TokenTTL int `toml:"token_ttl"`
}

// Validate requires a signing secret, tokens cannot be verified without one.
func (s Security) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("security.jwt_secret (OTTERLY_API_JWT_SECRET) must be set")
	}
	return nil
}

func (s Security) TTL() time.Duration {
	if s.TokenTTL <= 0 {
		return time.Hour * 720
	}
	return time.Hour * time.Duration(s.TokenTTL)
}

func (s *Security) FromENV() {
	s.JWTSecret = os.Getenv("OTTERLY_API_JWT_SECRET")
	s.TokenTTL, _ = strconv.Atoi(os.Getenv("OTTERLY_API_TOKEN_TTL"))
}

type Reply struct {
	// stream | buffered
	Contract string `toml:"contract"`
}

func (r Reply) ReplyContract() types.ReplyContract {
	if strings.ToLower(r.Contract) == string(types.REPLY_CONTRACT_BUFFERED) {
		return types.REPLY_CONTRACT_BUFFERED
	}
	return types.REPLY_CONTRACT_STREAM
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("OTTERLY_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.Security.FromENV()
	c.Reply.Contract = os.Getenv("OTTERLY_API_REPLY_CONTRACT")
	c.AI.FromENV()
}

// LoadCustomConfig decodes the [custom_config] table into a plugin owned payload.
func (c CoreConfig) LoadCustomConfig(v any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	return toml.Unmarshal(c.bytes, v)
}

type CustomConfig[T any] struct {
	CustomConfig T `toml:"custom_config"`
}

func NewCustomConfigPayload[T any]() CustomConfig[T] {
	return CustomConfig[T]{}
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("OTTERLY_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

func (r *Redis) FromENV() {
	r.Addr = os.Getenv("OTTERLY_API_REDIS_ADDR")
	r.Password = os.Getenv("OTTERLY_API_REDIS_PASSWORD")
	r.DB, _ = strconv.Atoi(os.Getenv("OTTERLY_API_REDIS_DB"))
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("OTTERLY_API_LOG_LEVEL")
	l.Path = os.Getenv("OTTERLY_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
