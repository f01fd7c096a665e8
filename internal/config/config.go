package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string        `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv               string        `env:"APP_ENV" envDefault:"development"`
	BaseURL              string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL          string        `env:"DATABASE_URL,required"`
	JWTSecret            string        `env:"JWT_SECRET,required"`
	JWTExpiresIn         time.Duration `env:"JWT_EXPIRES_IN" envDefault:"2160h"`
	JWTCookieExpiresDays int           `env:"JWT_COOKIE_EXPIRES_IN" envDefault:"90"`
	BcryptCost           int           `env:"BCRYPT_COST" envDefault:"12"`
	SMTPHost             string        `env:"SMTP_HOST"`
	SMTPPort             int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser             string        `env:"SMTP_USER"`
	SMTPPass             string        `env:"SMTP_PASS"`
	SMTPFrom             string        `env:"SMTP_FROM"`
	SMTPFromName         string        `env:"SMTP_FROM_NAME"`
	SMTPUseTLS           bool          `env:"SMTP_USE_TLS" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction indica si el servicio corre en modo producción.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
