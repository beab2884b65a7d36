package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Attendify AttendifyConfig
	Camera    CameraConfig
	Detector  DetectorConfig
	Capture   CaptureConfig
	Web       WebConfig
}

type AttendifyConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration // per-call deadline for every remote operation
}

type CameraConfig struct {
	Device string // explicit /dev/video* path; empty means auto-detect (front-facing preferred)
}

type DetectorConfig struct {
	CascadePath      string  // pigo facefinder cascade file
	QualityThreshold float64 // minimum detection quality to count as a face
	MinSize          int
	MaxSize          int
}

type CaptureConfig struct {
	Interval     time.Duration // periodic recognition trigger
	MaxImageSize int           // longest edge of the uploaded still
}

type WebConfig struct {
	Host string
	Port int
}

// defaults mirrors defaults.yaml. Durations are strings there and parsed
// on load.
type defaults struct {
	Capture struct {
		Interval     string `yaml:"interval"`
		MaxImageSize int    `yaml:"max_image_size"`
	} `yaml:"capture"`
	Remote struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Detector struct {
		CascadePath      string  `yaml:"cascade_path"`
		QualityThreshold float64 `yaml:"quality_threshold"`
		MinSize          int     `yaml:"min_size"`
		MaxSize          int     `yaml:"max_size"`
	} `yaml:"detector"`
	Web struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"web"`
}

// envStr reads an environment variable with a default.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration string.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Load builds the configuration from the embedded defaults overridden by
// environment variables.
func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// Embedded file, so this cannot happen outside a build defect.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Attendify: AttendifyConfig{
			URL:      os.Getenv("ATTENDIFY_URL"),
			Username: os.Getenv("ATTENDIFY_USERNAME"),
			Password: os.Getenv("ATTENDIFY_PASSWORD"),
			Timeout:  envDuration("ATTENDIFY_TIMEOUT", mustDuration(def.Remote.Timeout, 10*time.Second)),
		},
		Camera: CameraConfig{
			Device: os.Getenv("KIOSK_CAMERA_DEVICE"),
		},
		Detector: DetectorConfig{
			CascadePath:      envStr("KIOSK_CASCADE_PATH", def.Detector.CascadePath),
			QualityThreshold: envFloat("KIOSK_DETECTOR_QUALITY", def.Detector.QualityThreshold),
			MinSize:          envInt("KIOSK_DETECTOR_MIN_SIZE", def.Detector.MinSize),
			MaxSize:          envInt("KIOSK_DETECTOR_MAX_SIZE", def.Detector.MaxSize),
		},
		Capture: CaptureConfig{
			Interval:     envDuration("KIOSK_CAPTURE_INTERVAL", mustDuration(def.Capture.Interval, 2*time.Second)),
			MaxImageSize: envInt("KIOSK_MAX_IMAGE_SIZE", def.Capture.MaxImageSize),
		},
		Web: WebConfig{
			Host: envStr("WEB_HOST", def.Web.Host),
			Port: envInt("WEB_PORT", def.Web.Port),
		},
	}
}
