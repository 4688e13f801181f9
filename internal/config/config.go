package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env          string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	Postgres     `yaml:"postgres"`
	Redis        `yaml:"redis"`
	RabbitMQ     `yaml:"rabbitmq"`
	Tokens       `yaml:"tokens"`
	Verification `yaml:"verification"`
	Cache        `yaml:"cache"`
	Outbox       `yaml:"outbox"`
	Email        `yaml:"email"`
	CORS         `yaml:"cors"`
}

// * MailSender: конфигурация воркера, без секретов API и базы
type MailSender struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	Email    `yaml:"email"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host        string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port        int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User        string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password    string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName      string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode     string `yaml:"sslmode" env-default:"disable"`
	AutoMigrate bool   `yaml:"auto_migrate" env-default:"true"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"email_queue"`
	Prefetch  int    `yaml:"prefetch" env-default:"8"`
}

// Время жизни сессии в Redis совпадает с TTL токена.
type Tokens struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env-default:"1h"`
}

type Verification struct {
	CodeTTL        time.Duration `yaml:"code_ttl" env-default:"10m"`
	ResendCooldown time.Duration `yaml:"resend_cooldown" env-default:"60s"`
	MaxAttempts    int64         `yaml:"max_attempts" env-default:"5"`
	AttemptWindow  time.Duration `yaml:"attempt_window" env-default:"10m"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl" env-default:"5m"`
}

type Outbox struct {
	Size           int           `yaml:"size" env-default:"256"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env-default:"5s"`
}

type Email struct {
	Host           string  `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port           int     `yaml:"port" env:"SMTP_PORT" env-default:"1025"`
	Username       string  `yaml:"username" env:"SMTP_USERNAME"`
	Password       string  `yaml:"password" env:"SMTP_PASSWORD"`
	From           string  `yaml:"from" env:"SMTP_FROM" env-default:"noreply@example.com"`
	RatePerSecond  float64 `yaml:"rate_per_second" env-default:"5"`
	Burst          int     `yaml:"burst" env-default:"5"`
	MetricsAddress string  `yaml:"metrics_address" env-default:":9091"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
}

// * Load читает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if err := read(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

func LoadMailSender(configPath string) (*MailSender, error) {
	const op = "config.LoadMailSender"

	var cfg MailSender

	if err := read(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func MustLoadMailSender(configPath string) *MailSender {
	cfg, err := LoadMailSender(configPath)
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

func read(configPath string, cfg any) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	return cleanenv.ReadConfig(configPath, cfg)
}

// * Path возвращает путь к конфигу из CONFIG_PATH
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return "./config/local.yaml"
}

// * DSN формирует строку подключения для pgx
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

// * URL формирует адрес базы для golang-migrate
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + strconv.Itoa(p.Port),
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}

	return u.String()
}
