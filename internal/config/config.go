package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Game      GameConfig      `yaml:"game"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host            string   `yaml:"host"`
	RESTPort        int      `yaml:"rest_port"`
	ShutdownSeconds int      `yaml:"shutdown_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // memory, badger, sqlite, mysql, redis
	DataPath        string `yaml:"data_path"`
	SQLitePath      string `yaml:"sqlite_path"`
	MySQLDSN        string `yaml:"mysql_dsn"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisCache      bool   `yaml:"redis_cache"`
	RedisTTLMinutes int    `yaml:"redis_ttl_minutes"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто: шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// GameConfig настройки боя по умолчанию
type GameConfig struct {
	TickRate           int    `yaml:"tick_rate"`
	Difficulty         string `yaml:"difficulty"`
	Quality            string `yaml:"quality"`
	Style              string `yaml:"style"`
	Mobile             bool   `yaml:"mobile"`
	ActionBuffer       int    `yaml:"action_buffer"`
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"` // пусто: трассировка выключена
	ServiceName string `yaml:"service_name"`
}

// Default конфигурация без файла и переменных окружения
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load читает YAML файл конфигурации. Если path пуст, берётся GAME_CONFIG,
// а без него config.yml в рабочем каталоге, если он есть. Незаданные поля
// заполняются из окружения, затем значениями по умолчанию.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
	}
	if path == "" {
		path, explicit = "config.yml", false
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.RESTPort = intWithEnvFallback(c.Server.RESTPort, "REST_PORT")
	c.Auth.JWTSecret = stringWithEnvFallback(c.Auth.JWTSecret, "JWT_SECRET")
	c.Auth.MongoURI = stringWithEnvFallback(c.Auth.MongoURI, "MONGO_URI")
	c.Storage.Backend = stringWithEnvFallback(c.Storage.Backend, "STORAGE_BACKEND")
	c.Storage.MySQLDSN = stringWithEnvFallback(c.Storage.MySQLDSN, "MYSQL_DSN")
	c.Storage.RedisAddr = stringWithEnvFallback(c.Storage.RedisAddr, "REDIS_ADDR")
	c.EventBus.URL = stringWithEnvFallback(c.EventBus.URL, "NATS_URL")
	c.Logging.Level = stringWithEnvFallback(c.Logging.Level, "LOG_LEVEL")
	c.Telemetry.Endpoint = stringWithEnvFallback(c.Telemetry.Endpoint, "OTEL_ENDPOINT")
}

func (c *Config) applyDefaults() {
	setInt(&c.Server.RESTPort, 8088)
	setInt(&c.Server.ShutdownSeconds, 10)
	setInt(&c.Auth.TokenTTLHours, 24)
	setString(&c.Auth.MongoDatabase, "scorched")
	setString(&c.Storage.Backend, "memory")
	setString(&c.Storage.DataPath, "data")
	setString(&c.Storage.SQLitePath, "data/profiles.db")
	setString(&c.Storage.RedisAddr, "localhost:6379")
	setString(&c.EventBus.Stream, "SCORCHED")
	setInt(&c.EventBus.Retention, 24)
	setInt(&c.EventBus.Buffer, 1024)
	setInt(&c.Game.TickRate, 60)
	setString(&c.Game.Difficulty, "normal")
	setString(&c.Game.Quality, "high")
	setString(&c.Game.Style, "classic")
	setInt(&c.Game.ActionBuffer, 64)
	setInt(&c.Game.IdleTimeoutMinutes, 30)
	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Dir, "logs")
	setString(&c.Telemetry.ServiceName, "tdscorchedearth")
}

// Addr адрес REST сервера
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.RESTPort)
}

// ShutdownTimeout время на корректное завершение
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

// TokenTTL срок жизни JWT
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// RedisTTL срок жизни записи в Redis, 0 без истечения
func (s StorageConfig) RedisTTL() time.Duration {
	return time.Duration(s.RedisTTLMinutes) * time.Minute
}

// RetentionDuration срок хранения событий в JetStream
func (e EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// TickInterval период тикера сессии
func (g GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(g.TickRate)
}

// IdleTimeout время простоя до закрытия сессии
func (g GameConfig) IdleTimeout() time.Duration {
	return time.Duration(g.IdleTimeoutMinutes) * time.Minute
}

// intWithEnvFallback возвращает значение с приоритетом: config -> env
func intWithEnvFallback(value int, envVar string) int {
	if value > 0 {
		return value
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return value
}

func stringWithEnvFallback(value, envVar string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envVar)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}
