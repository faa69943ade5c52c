package utils

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	PayOS     PayOSConfig
	Booking   BookingConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name          string
	Port          string
	Debug         bool
	LogPath       string
	StorageDriver string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type PayOSConfig struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	ReturnURL   string
	CancelURL   string
	Timeout     time.Duration
}

// BookingConfig holds the turnover policy of the availability checker.
type BookingConfig struct {
	TooSoonBuffer   time.Duration
	TooCloseCutoff  time.Duration
	TurnoverBuffer  time.Duration
	DefaultDuration time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "restaurant-ops")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("STORAGE_DRIVER", "postgres")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOCK_TTL", "10s")
	viper.SetDefault("LOCK_WAIT", "3s")
	viper.SetDefault("NOTIFY_QUEUE", "reservation.confirmed")
	viper.SetDefault("PAYOS_BASE_URL", "https://api-merchant.payos.vn")
	viper.SetDefault("PAYOS_TIMEOUT", "10s")
	viper.SetDefault("BOOKING_TOO_SOON_BUFFER", "2h")
	viper.SetDefault("BOOKING_TOO_CLOSE_CUTOFF", "30m")
	viper.SetDefault("BOOKING_TURNOVER_BUFFER", "2h")
	viper.SetDefault("BOOKING_DEFAULT_DURATION", "2h")
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)

	// .env is optional; plain environment variables are enough in containers
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:          viper.GetString("APP_NAME"),
			Port:          viper.GetString("PORT"),
			Debug:         viper.GetBool("DEBUG"),
			LogPath:       viper.GetString("LOG_PATH"),
			StorageDriver: viper.GetString("STORAGE_DRIVER"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			LockTTL:  viper.GetDuration("LOCK_TTL"),
			LockWait: viper.GetDuration("LOCK_WAIT"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   viper.GetString("RABBITMQ_URL"),
			Queue: viper.GetString("NOTIFY_QUEUE"),
		},
		PayOS: PayOSConfig{
			BaseURL:     viper.GetString("PAYOS_BASE_URL"),
			ClientID:    viper.GetString("PAYOS_CLIENT_ID"),
			APIKey:      viper.GetString("PAYOS_API_KEY"),
			ChecksumKey: viper.GetString("PAYOS_CHECKSUM_KEY"),
			ReturnURL:   viper.GetString("PAYOS_RETURN_URL"),
			CancelURL:   viper.GetString("PAYOS_CANCEL_URL"),
			Timeout:     viper.GetDuration("PAYOS_TIMEOUT"),
		},
		Booking: BookingConfig{
			TooSoonBuffer:   viper.GetDuration("BOOKING_TOO_SOON_BUFFER"),
			TooCloseCutoff:  viper.GetDuration("BOOKING_TOO_CLOSE_CUTOFF"),
			TurnoverBuffer:  viper.GetDuration("BOOKING_TURNOVER_BUFFER"),
			DefaultDuration: viper.GetDuration("BOOKING_DEFAULT_DURATION"),
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}
