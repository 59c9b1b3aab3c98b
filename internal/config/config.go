// Package config loads and validates the platewatch runtime
// configuration. Fields omitted from the YAML file keep their defaults,
// so partial configs are safe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required"`
}

// VideoConfig holds capture settings.
type VideoConfig struct {
	// Source is a device index ("0") or a file/stream path.
	Source string `yaml:"source"`
	// FrameSkip processes every Nth frame fully; others pass through.
	FrameSkip int `yaml:"frameSkip" validate:"gte=1"`
}

// TrackingConfig holds track registry tuning.
type TrackingConfig struct {
	// PositionThreshold is the maximum center distance in pixels for a
	// detection to join an existing track.
	PositionThreshold float64 `yaml:"positionThreshold" validate:"gt=0"`
	// MaxTrackAgeSeconds evicts tracks not seen for this long.
	MaxTrackAgeSeconds float64 `yaml:"maxTrackAgeSeconds" validate:"gt=0"`
	// LockedGraceSeconds evicts locked tracks this long after their
	// last update.
	LockedGraceSeconds float64 `yaml:"lockedGraceSeconds" validate:"gt=0"`
	// MinTrackConfidence is the detector confidence a track must reach
	// before recognition is attempted (0-1 scale).
	MinTrackConfidence float64 `yaml:"minTrackConfidence" validate:"gte=0,lte=1"`
	// EvictionIntervalMS is the housekeeping ticker period.
	EvictionIntervalMS int `yaml:"evictionIntervalMS" validate:"gt=0"`
}

// RecognitionConfig holds recognition gating and fusion tuning.
// Thresholds are on the 0-100 recognition confidence scale, distinct
// from the detector's 0-1 scale.
type RecognitionConfig struct {
	// MaxAttempts is the per-track recognition retry budget.
	MaxAttempts int `yaml:"maxAttempts" validate:"gte=1"`
	// LockThreshold locks a track once its best confidence exceeds it.
	LockThreshold float64 `yaml:"lockThreshold" validate:"gt=0,lte=100"`
	// SaveThreshold commits a track to storage once its best
	// confidence reaches it. Independent of LockThreshold.
	SaveThreshold float64 `yaml:"saveThreshold" validate:"gt=0,lte=100"`
	// CropPadding is the pixel padding added around a plate crop.
	CropPadding int `yaml:"cropPadding" validate:"gte=0"`
	// Workers bounds concurrent recognition calls per frame.
	Workers int `yaml:"workers" validate:"gte=1"`
	// MinPlateLength and MaxPlateLength bound accepted plate strings.
	MinPlateLength int `yaml:"minPlateLength" validate:"gte=1"`
	MaxPlateLength int `yaml:"maxPlateLength" validate:"gte=1"`
}

// DetectionConfig holds detector output filtering.
type DetectionConfig struct {
	// ConfidenceThreshold drops detections below it (0-1 scale).
	ConfidenceThreshold float64 `yaml:"confidenceThreshold" validate:"gte=0,lte=1"`
	// NMSThreshold reduces overlapping plate boxes above this IoU to
	// the highest-confidence one.
	NMSThreshold float64 `yaml:"nmsThreshold" validate:"gt=0,lt=1"`
}

// ROIConfig holds region-of-interest gating settings.
type ROIConfig struct {
	// Path is the JSON file the configured rectangle persists to.
	Path string `yaml:"path"`
	// IntersectionThreshold gates recognition on the ratio of a plate
	// box inside the ROI.
	IntersectionThreshold float64 `yaml:"intersectionThreshold" validate:"gt=0,lt=1"`
}

// ModelsConfig holds the compiled NPU model paths. All are required
// in camera mode; replay mode never touches them.
type ModelsConfig struct {
	// Detector is the YOLOv8 plate and wheel detection model.
	Detector string `yaml:"detector"`
	// LPRNet is the first recognition engine's model.
	LPRNet string `yaml:"lprnet"`
	// OCR and OCRKeys are the second recognition engine's model and
	// character key file.
	OCR     string `yaml:"ocr"`
	OCRKeys string `yaml:"ocrKeys"`
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DBPath   string `yaml:"dbPath" validate:"required"`
	ImageDir string `yaml:"imageDir" validate:"required"`
}

// Config is the root platewatch configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Video       VideoConfig       `yaml:"video"`
	Tracking    TrackingConfig    `yaml:"tracking"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Detection   DetectionConfig   `yaml:"detection"`
	ROI         ROIConfig         `yaml:"roi"`
	Models      ModelsConfig      `yaml:"models"`
	Storage     StorageConfig     `yaml:"storage"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Video:  VideoConfig{Source: "0", FrameSkip: 2},
		Tracking: TrackingConfig{
			PositionThreshold:  100,
			MaxTrackAgeSeconds: 2.0,
			LockedGraceSeconds: 1.0,
			MinTrackConfidence: 0.5,
			EvictionIntervalMS: 500,
		},
		Recognition: RecognitionConfig{
			MaxAttempts:    2,
			LockThreshold:  40,
			SaveThreshold:  75,
			CropPadding:    5,
			Workers:        2,
			MinPlateLength: 3,
			MaxPlateLength: 10,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.4,
			NMSThreshold:        0.3,
		},
		ROI: ROIConfig{
			Path:                  "config/roi.json",
			IntersectionThreshold: 0.2,
		},
		Models: ModelsConfig{
			Detector: "models/plate-yolov8n.rknn",
			LPRNet:   "models/lprnet.rknn",
			OCR:      "models/ppocrv4-rec.rknn",
			OCRKeys:  "models/ppocr_keys.txt",
		},
		Storage: StorageConfig{
			DBPath:   "platewatch.db",
			ImageDir: "plates",
		},
	}
}

// MaxTrackAge returns the track eviction age as a duration.
func (c *TrackingConfig) MaxTrackAge() time.Duration {
	return time.Duration(c.MaxTrackAgeSeconds * float64(time.Second))
}

// LockedGrace returns the locked-track grace period as a duration.
func (c *TrackingConfig) LockedGrace() time.Duration {
	return time.Duration(c.LockedGraceSeconds * float64(time.Second))
}

// EvictionInterval returns the housekeeping ticker period.
func (c *TrackingConfig) EvictionInterval() time.Duration {
	return time.Duration(c.EvictionIntervalMS) * time.Millisecond
}

// Load reads a YAML config file on top of the defaults and validates
// the result. An empty path returns validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		cleanPath := filepath.Clean(path)
		if ext := filepath.Ext(cleanPath); ext != ".yml" && ext != ".yaml" {
			return nil, fmt.Errorf("config file must have .yml or .yaml extension, got %q", ext)
		}

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks all field constraints and cross-field relations.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.Recognition.MinPlateLength > c.Recognition.MaxPlateLength {
		return fmt.Errorf("minPlateLength %d exceeds maxPlateLength %d",
			c.Recognition.MinPlateLength, c.Recognition.MaxPlateLength)
	}
	return nil
}
