package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration, populated from the
// environment (optionally via a .env file loaded in main).
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	CORS     CORSConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `env:"HTTP_PORT"            env-default:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT"    env-default:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT"   env-default:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT"    env-default:"60s"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN string `env:"DATABASE_URL" env-required:"true"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  env-default:"24h"`
}

// StorageConfig holds uploaded-file storage settings.
type StorageConfig struct {
	UploadDir      string `env:"UPLOAD_DIR"       env-default:"./uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" env-default:"16777216"` // 16MB
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
