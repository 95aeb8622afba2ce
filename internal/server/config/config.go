// Package config загружает конфигурацию сервера из флагов, переменных окружения
// (префикс PKCEAUTH_), опционального .env и YAML файла.
// Приоритет: флаги > окружение > файл > значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "PKCEAUTH"

// Драйверы хранилища пользователей
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Бэкенды хранилища authorization codes
const (
	CodesMemory = "memory"
	CodesRedis  = "redis"
)

// Config конфигурация сервера
type Config struct {
	HTTP        HTTPConfig    `mapstructure:"http"`
	Storage     StorageConfig `mapstructure:"storage"`
	Codes       CodesConfig   `mapstructure:"codes"`
	JWT         JWTConfig     `mapstructure:"jwt"`
	Cookie      CookieConfig  `mapstructure:"cookie"`
	Log         LogConfig     `mapstructure:"log"`
	Seed        SeedConfig    `mapstructure:"seed"`
	ShowVersion bool          `mapstructure:"-"`
}

// HTTPConfig параметры HTTP сервера
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig хранилище пользователей
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// CodesConfig хранилище authorization codes
type CodesConfig struct {
	Backend       string        `mapstructure:"backend"` // memory | redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// JWTConfig секреты и время жизни токенов.
// Секреты не имеют значений по умолчанию.
type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

// CookieConfig параметры refresh cookie
type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Secure bool   `mapstructure:"secure"`
}

// LogConfig параметры логгера
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // text | json
}

// SeedConfig пользователь, создаваемый при старте (опционально)
type SeedConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.dsn", "pkceauth.db")

	v.SetDefault("codes.backend", CodesMemory)
	v.SetDefault("codes.redis_addr", "localhost:6379")
	v.SetDefault("codes.redis_password", "")
	v.SetDefault("codes.redis_db", 0)
	v.SetDefault("codes.ttl", 5*time.Minute)
	v.SetDefault("codes.sweep_interval", time.Minute)

	// пустые значения нужны, чтобы AutomaticEnv увидел ключи при Unmarshal
	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.issuer", "pkceauth")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("cookie.name", "refresh_token")
	v.SetDefault("cookie.secure", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("seed.username", "")
	v.SetDefault("seed.password", "")
}

// flagBindings связь флагов командной строки с ключами конфигурации
var flagBindings = map[string]string{
	"addr":           "http.addr",
	"storage-driver": "storage.driver",
	"storage-dsn":    "storage.dsn",
	"codes-backend":  "codes.backend",
	"redis-addr":     "codes.redis_addr",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"cookie-secure":  "cookie.secure",
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to YAML config file")
	fs.String("env-file", ".env", "Path to .env file (ignored if missing)")
	fs.Bool("version", false, "Show version information")
	fs.String("addr", ":3000", "HTTP listen address")
	fs.String("storage-driver", StorageSQLite, "User storage driver (sqlite|postgres)")
	fs.String("storage-dsn", "pkceauth.db", "User storage DSN or sqlite file path")
	fs.String("codes-backend", CodesMemory, "Authorization code store (memory|redis)")
	fs.String("redis-addr", "localhost:6379", "Redis address for codes-backend=redis")
	fs.String("log-level", "info", "Log level (debug|info|warn|error)")
	fs.String("log-format", "text", "Log format (text|json)")
	fs.Bool("cookie-secure", false, "Set Secure attribute on refresh cookie")
	return fs
}

// Load разбирает args (без имени программы) и собирает конфигурацию
func Load(args []string) (*Config, error) {
	fs := newFlagSet("pkceauth-server")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	showVersion, _ := fs.GetBool("version")
	if showVersion {
		return &Config{ShowVersion: true}, nil
	}

	envFile, _ := fs.GetString("env-file")
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// флаги переопределяют окружение только если заданы явно
	for name, key := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv загружает .env, не перетирая уже заданные переменные
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("jwt.access_secret is required"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("jwt.refresh_secret is required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("jwt.access_secret and jwt.refresh_secret must differ"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("jwt.access_ttl must be positive"))
	}
	if c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("jwt.refresh_ttl must be positive"))
	}
	if c.Codes.TTL <= 0 {
		errs = append(errs, errors.New("codes.ttl must be positive"))
	}

	switch c.Storage.Driver {
	case StorageSQLite, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required"))
	}

	switch c.Codes.Backend {
	case CodesMemory:
		if c.Codes.SweepInterval <= 0 {
			errs = append(errs, errors.New("codes.sweep_interval must be positive"))
		}
	case CodesRedis:
		if c.Codes.RedisAddr == "" {
			errs = append(errs, errors.New("codes.redis_addr is required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown codes.backend %q", c.Codes.Backend))
	}

	if (c.Seed.Username == "") != (c.Seed.Password == "") {
		errs = append(errs, errors.New("seed.username and seed.password must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
