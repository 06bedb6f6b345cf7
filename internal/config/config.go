package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Log     Log
	HTTP    HTTP
	Storage Storage
	Redis   Redis
	Cache   Cache
	AMQP    AMQP
	SMTP    SMTP
	Payment Payment
	Files   Files
	Auth    Auth
	Booking Booking
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type HTTP struct {
	Host              string        `env:"HTTP_HOST" envDefault:"localhost"`
	Port              string        `env:"HTTP_PORT" envDefault:"8092"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"20s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"4s"`
	LivenessEndpoint  string        `env:"HTTP_LIVENESS_ENDPOINT" envDefault:"/liveness"`
	AllowedOrigins    []string      `env:"HTTP_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type Storage struct {
	// Driver is either "mysql" or "memory".
	Driver   string `env:"STORAGE_DRIVER" envDefault:"memory"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"booking"`
	Password string `env:"DB_PASSWORD" envDefault:"booking"`
	Name     string `env:"DB_NAME" envDefault:"hotel_booking"`
	Seed     bool   `env:"DB_SEED" envDefault:"true"`
}

func (s Storage) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

type Redis struct {
	Addr           string        `env:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type Cache struct {
	MemcachedHost string        `env:"MEMCACHED_HOST"`
	LocalSize     int64         `env:"CACHE_LOCAL_SIZE" envDefault:"1000"`
	TTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

type AMQP struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"bookings"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"bookings@localhost"`
}

type Payment struct {
	// Provider is either "stripe" or "sandbox".
	Provider      string `env:"PAYMENT_PROVIDER" envDefault:"sandbox"`
	StripeKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type Files struct {
	// Driver is either "hdfs" or "local".
	Driver    string `env:"FILES_DRIVER" envDefault:"local"`
	HDFSAddr  string `env:"HDFS_URI"`
	Root      string `env:"FILES_ROOT" envDefault:"./data/confirmations"`
	PublicURL string `env:"FILES_PUBLIC_URL" envDefault:"http://localhost:8092/files"`
}

type Auth struct {
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AdminEmail    string        `env:"ADMIN_EMAIL" envDefault:"admin@hotel.local"`
	AdminPassword string        `env:"ADMIN_PASSWORD,required,notEmpty"`
}

type Booking struct {
	Currency            string        `env:"BOOKING_CURRENCY" envDefault:"usd"`
	ExternalCallTimeout time.Duration `env:"EXTERNAL_CALL_TIMEOUT" envDefault:"10s"`
	HandlerTimeout      time.Duration `env:"CONFIRMATION_HANDLER_TIMEOUT" envDefault:"30s"`
}

// Load reads the given env files (".env" when none are given) without
// overriding variables already set, then parses the environment. Missing
// files are skipped.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	//nolint:exhaustruct
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var ErrMissingStripeSecrets = errors.New("stripe provider needs STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")

func (p Payment) validate() error {
	if p.Provider == "stripe" && (p.StripeKey == "" || p.WebhookSecret == "") {
		return ErrMissingStripeSecrets
	}

	return nil
}
