package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	AccessPINHash string        `env:"ACCESS_PIN_HASH,required"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	Port          int           `env:"PORT" envDefault:"8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string        `env:"APP_ENV" envDefault:"production"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	NATSURL string `env:"NATS_URL"`

	ReportEnabled bool   `env:"REPORT_ENABLED" envDefault:"false"`
	ReportCron    string `env:"REPORT_CRON" envDefault:"0 0 6 * * MON"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
