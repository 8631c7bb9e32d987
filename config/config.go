package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"project-tracker/storage"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string        `env:"APP_ENV" env-default:"production"`
	Port        string        `env:"SERVER_PORT" env-default:"8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" env-default:"15s"`
	CORSOrigins []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:4200"`

	MongoURI    string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME" env-default:"task-management"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" env-default:"168h"`

	AttachmentBackend string   `env:"ATTACHMENT_BACKEND" env-default:"gridfs"`
	UploadsDir        string   `env:"UPLOADS_DIR" env-default:"uploads"`
	GridFSBucket      string   `env:"GRIDFS_BUCKET" env-default:"uploads"`
	MaxUploadBytes    int64    `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	AllowedMimeTypes  []string `env:"ALLOWED_MIME_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/gif,application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain,application/zip,application/x-zip-compressed"`

	PasswordBlackList string `env:"PASSWORD_BLACKLIST_FILE"`

	LogFile  string `env:"LOG_FILE" env-default:"logs/tracker.log"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFile string) (Config, error) {
	var cfg Config

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			var pe *os.PathError
			if !errors.As(err, &pe) {
				return cfg, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	cfg.AttachmentBackend = strings.ToLower(strings.TrimSpace(cfg.AttachmentBackend))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	switch c.AttachmentBackend {
	case storage.BackendDisk, storage.BackendGridFS:
	default:
		return fmt.Errorf("unknown ATTACHMENT_BACKEND %q", c.AttachmentBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}
