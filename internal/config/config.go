package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Broker BrokerConfig
	Oracle OracleConfig
	Redis  RedisConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type BrokerConfig struct {
	URL            string
	Queue          string
	ReconnectDelay time.Duration
}

type OracleConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	// URL enables presence tracking when set; empty disables it.
	URL string
}

func LoadConfig() (*Config, error) {
	// Viper setup
	once.Do(func() {
		viper.SetDefault("NOTIFY_PORT", "3001")
		viper.SetDefault("NOTIFY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("NOTIFY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("NOTIFY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("RABBITMQ_URL", "amqp://localhost:5672")
		viper.SetDefault("NOTIFY_QUEUE", "assignment-notifications")
		viper.SetDefault("BROKER_RECONNECT_DELAY", 5*time.Second)
		viper.SetDefault("PLATFORM_API", "http://localhost:8080")
		viper.SetDefault("ORACLE_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_URL", "")
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("NOTIFY_HOST"),
				Port:         viper.GetString("NOTIFY_PORT"),
				ReadTimeout:  viper.GetDuration("NOTIFY_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("NOTIFY_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("NOTIFY_IDLE_TIMEOUT"),
			},
			Broker: BrokerConfig{
				URL:            viper.GetString("RABBITMQ_URL"),
				Queue:          viper.GetString("NOTIFY_QUEUE"),
				ReconnectDelay: viper.GetDuration("BROKER_RECONNECT_DELAY"),
			},
			Oracle: OracleConfig{
				BaseURL: viper.GetString("PLATFORM_API"),
				Timeout: viper.GetDuration("ORACLE_TIMEOUT"),
			},
			Redis: RedisConfig{
				URL: viper.GetString("REDIS_URL"),
			},
		}
	})

	return ConfigInstance, nil
}
