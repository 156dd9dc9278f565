package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"caixamisteriosa/internal/domain"
)

// EnvPrefix prefixes every environment variable read by the server
const EnvPrefix = "CAIXA"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Store   StoreConfig
	Catalog CatalogConfig
	Clues   CluesConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port      int
	Host      string
	Env       string // "development" or "production"
	PublicURL string // base URL encoded in join QR codes; derived from the request when empty
}

// GameConfig holds game-related configuration
type GameConfig struct {
	OperatorKey    string
	RoomCodeLength int
	SessionTimeout time.Duration
	MinWheelSize   int
	ItemHeight     float64
	WindowHeight   float64
	DrawDuration   time.Duration
	SubmissionTTL  time.Duration
}

// StoreConfig selects the shared state backend
type StoreConfig struct {
	Backend       string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// CatalogConfig holds the sponsor/product database settings
type CatalogConfig struct {
	DSN string
}

// CluesConfig points at the clue generation service
type CluesConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// BindFlags registers every configuration flag on fs
func BindFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntP("port", "p", 8080, "port to listen on (env: CAIXA_PORT)")
	fs.StringP("host", "b", "0.0.0.0", "address to bind to (env: CAIXA_HOST)")
	fs.String("env", "development", "development or production (env: CAIXA_ENV)")
	fs.String("public-url", "", "public base URL used in join QR codes (env: CAIXA_PUBLIC_URL)")

	fs.String("operator-key", "", "shared key required to join as operator, empty allows anyone (env: CAIXA_OPERATOR_KEY)")
	fs.Int("room-code-length", 6, "length of generated room codes (env: CAIXA_ROOM_CODE_LENGTH)")
	fs.Duration("session-timeout", 30*time.Minute, "time before idle empty rooms are closed (env: CAIXA_SESSION_TIMEOUT)")
	fs.Int("min-wheel-size", domain.DefaultMinWheelSize, "minimum number of entries on the draw wheel (env: CAIXA_MIN_WHEEL_SIZE)")
	fs.Float64("item-height", domain.DefaultItemHeight, "height of a wheel entry in pixels (env: CAIXA_ITEM_HEIGHT)")
	fs.Float64("window-height", domain.DefaultWindowHeight, "height of the wheel window in pixels (env: CAIXA_WINDOW_HEIGHT)")
	fs.Duration("draw-duration", domain.DefaultDrawDuration, "length of the draw animation (env: CAIXA_DRAW_DURATION)")
	fs.Duration("submission-ttl", 24*time.Hour, "how long submission flags are kept (env: CAIXA_SUBMISSION_TTL)")

	fs.String("store", "memory", "shared state backend: memory or redis (env: CAIXA_STORE)")
	fs.String("redis-addr", "localhost:6379", "redis address (env: CAIXA_REDIS_ADDR)")
	fs.String("redis-password", "", "redis password (env: CAIXA_REDIS_PASSWORD)")
	fs.Int("redis-db", 0, "redis database (env: CAIXA_REDIS_DB)")

	fs.String("catalog-dsn", "caixa.db", "sqlite database for sponsors and products (env: CAIXA_CATALOG_DSN)")

	fs.String("clues-endpoint", "", "clue generation endpoint, empty disables it (env: CAIXA_CLUES_ENDPOINT)")
	fs.String("clues-api-key", "", "bearer token for the clue endpoint (env: CAIXA_CLUES_API_KEY)")
	fs.Duration("clues-timeout", 20*time.Second, "clue generation timeout (env: CAIXA_CLUES_TIMEOUT)")

	fs.String("log-level", "info", "debug, info, warn or error (env: CAIXA_LOG_LEVEL)")
	fs.String("log-format", "text", "text or json (env: CAIXA_LOG_FORMAT)")
}

// Load reads configuration from the flags in fs, falling back to CAIXA_* environment
// variables and then to the flag defaults
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetInt("port"),
			Host:      v.GetString("host"),
			Env:       v.GetString("env"),
			PublicURL: strings.TrimRight(v.GetString("public-url"), "/"),
		},
		Game: GameConfig{
			OperatorKey:    v.GetString("operator-key"),
			RoomCodeLength: v.GetInt("room-code-length"),
			SessionTimeout: v.GetDuration("session-timeout"),
			MinWheelSize:   v.GetInt("min-wheel-size"),
			ItemHeight:     v.GetFloat64("item-height"),
			WindowHeight:   v.GetFloat64("window-height"),
			DrawDuration:   v.GetDuration("draw-duration"),
			SubmissionTTL:  v.GetDuration("submission-ttl"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store")),
			RedisAddr:     v.GetString("redis-addr"),
			RedisPassword: v.GetString("redis-password"),
			RedisDB:       v.GetInt("redis-db"),
		},
		Catalog: CatalogConfig{
			DSN: v.GetString("catalog-dsn"),
		},
		Clues: CluesConfig{
			Endpoint: v.GetString("clues-endpoint"),
			APIKey:   v.GetString("clues-api-key"),
			Timeout:  v.GetDuration("clues-timeout"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("log-level")),
			Format: strings.ToLower(v.GetString("log-format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Game.RoomCodeLength < 4 || c.Game.RoomCodeLength > 12 {
		return fmt.Errorf("invalid room code length (must be between 4-12 inclusive): %d", c.Game.RoomCodeLength)
	}
	if c.Game.MinWheelSize < 1 {
		return fmt.Errorf("invalid min wheel size: %d", c.Game.MinWheelSize)
	}
	if c.Game.ItemHeight <= 0 || c.Game.WindowHeight <= 0 {
		return errors.New("wheel item and window heights must be positive")
	}
	if c.Game.DrawDuration <= 0 {
		return fmt.Errorf("invalid draw duration: %s", c.Game.DrawDuration)
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("--redis-addr is required with --store=redis")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory or redis)", c.Store.Backend)
	}

	if c.Catalog.DSN == "" {
		return errors.New("--catalog-dsn must not be empty")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (want json or text)", c.Logging.Format)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// DrawSettings returns the roulette settings for new draws
func (c *Config) DrawSettings() domain.DrawSettings {
	return domain.DrawSettings{
		MinWheelSize: c.Game.MinWheelSize,
		ItemHeight:   c.Game.ItemHeight,
		WindowHeight: c.Game.WindowHeight,
		Duration:     c.Game.DrawDuration,
	}
}
