package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"5000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Recognition
	ProcessEveryNFrames  int           `envconfig:"PROCESS_EVERY_N_FRAMES" default:"5"`
	DownsampleFactor     float64       `envconfig:"DOWNSAMPLE_FACTOR" default:"0.5"`
	RecognitionThreshold float64       `envconfig:"RECOGNITION_THRESHOLD" default:"0.5"`
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"10s"`

	// Detector
	Detector      string `envconfig:"DETECTOR" default:"dlib"`
	ModelsDir     string `envconfig:"MODELS_DIR" default:"./models"`
	MinAssetBytes int64  `envconfig:"MIN_ASSET_BYTES" default:"1048576"`
	DeepFaceURL   string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	// DeepFaceRetries repeats a failed /represent call on 5xx or transport
	// errors, backing off from one second. Each retry stalls the cycle.
	DeepFaceRetries int `envconfig:"DEEPFACE_RETRIES" default:"0"`

	// Camera and operator window
	CameraDevice string `envconfig:"CAMERA_DEVICE" default:"0"`
	WindowTitle  string `envconfig:"WINDOW_TITLE" default:"FaceGate"`

	// Relay
	RelayAddress string        `envconfig:"RELAY_ADDRESS"`
	RelayPayload string        `envconfig:"RELAY_PAYLOAD" default:"OPEN\n"`
	RelayTimeout time.Duration `envconfig:"RELAY_TIMEOUT" default:"500ms"`

	// Audit
	AccessEventWindow time.Duration `envconfig:"ACCESS_EVENT_WINDOW" default:"10s"`
	AuditRetention    time.Duration `envconfig:"AUDIT_RETENTION" default:"720h"`

	// Dashboard live updates
	SessionPushInterval time.Duration `envconfig:"SESSION_PUSH_INTERVAL" default:"1s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.RelayPayload = unescapePayload(cfg.RelayPayload)
	return &cfg, nil
}

// ValidateKiosk checks the options the recognition loop depends on.
func (c *Config) ValidateKiosk() error {
	var errs []error
	if c.ProcessEveryNFrames < 1 {
		errs = append(errs, fmt.Errorf("PROCESS_EVERY_N_FRAMES must be >= 1, got %d", c.ProcessEveryNFrames))
	}
	if c.DownsampleFactor <= 0 || c.DownsampleFactor > 1 {
		errs = append(errs, fmt.Errorf("DOWNSAMPLE_FACTOR must be in (0, 1], got %g", c.DownsampleFactor))
	}
	if c.RecognitionThreshold < 0 {
		errs = append(errs, fmt.Errorf("RECOGNITION_THRESHOLD must be >= 0, got %g", c.RecognitionThreshold))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.RelayTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_TIMEOUT must be positive, got %s", c.RelayTimeout))
	}
	if c.RelayPayload == "" {
		errs = append(errs, errors.New("RELAY_PAYLOAD must not be empty"))
	}
	if c.DeepFaceRetries < 0 {
		errs = append(errs, fmt.Errorf("DEEPFACE_RETRIES must be >= 0, got %d", c.DeepFaceRetries))
	}
	return errors.Join(errs...)
}

// ValidateDashboard checks the options the dashboard depends on.
func (c *Config) ValidateDashboard() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.SessionPushInterval <= 0 {
		return fmt.Errorf("SESSION_PUSH_INTERVAL must be positive, got %s", c.SessionPushInterval)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// unescapePayload turns the literal escapes a shell leaves in env values
// (`OPEN\n`) into the bytes the relay firmware expects.
func unescapePayload(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				out = append(out, '\n')
				i++
				continue
			case 'r':
				out = append(out, '\r')
				i++
				continue
			case '\\':
				out = append(out, '\\')
				i++
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
