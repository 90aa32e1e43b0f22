// Package config loads application settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvFacesDir  = "MUKHA_FACES_DIR"
	EnvCascade   = "MUKHA_CASCADE"
	EnvCamera    = "MUKHA_CAMERA"
	EnvAddr      = "MUKHA_ADDR"
	EnvThreshold = "MUKHA_THRESHOLD"
)

type Config struct {
	FacesDir string         `yaml:"faces_dir"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Motion   MotionConfig   `yaml:"motion"`
	Server   ServerConfig   `yaml:"server"`
	Tray     bool           `yaml:"tray"`
}

type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

type DetectorConfig struct {
	Cascade      string  `yaml:"cascade"` // empty searches resources/ and the OpenCV data directories
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

type MatcherConfig struct {
	Threshold float64 `yaml:"threshold"` // minimum histogram correlation, in (-1, 1]
	Verbose   bool    `yaml:"verbose"`
}

type MotionConfig struct {
	// Threshold is the percentage of changed pixels that triggers re-recognition.
	// Zero recognizes every frame.
	Threshold float64 `yaml:"threshold"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		FacesDir: filepath.Join("resources", "known_faces"),
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			Cascade:      "",
			ScaleFactor:  1.1,
			MinNeighbors: 3,
			MinSize:      30,
		},
		Matcher: MatcherConfig{
			Threshold: 0.6,
		},
		Motion: MotionConfig{
			Threshold: 0,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Tray: false,
	}
}

// DefaultPath returns ~/.mukha/config.yaml, or config.yaml when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mukha", "config.yaml")
}

// Load reads path over the defaults, loads an optional .env from the working
// directory and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvFacesDir); v != "" {
		c.FacesDir = v
	}
	if v := os.Getenv(EnvCascade); v != "" {
		c.Detector.Cascade = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvCamera); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCamera, v, err)
		}
		c.Camera.Device = n
	}
	if v := os.Getenv(EnvThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvThreshold, v, err)
		}
		c.Matcher.Threshold = f
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.FacesDir == "" {
		return errors.New("faces_dir must not be empty")
	}
	if c.Matcher.Threshold <= -1 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("matcher.threshold %v out of range (-1, 1]", c.Matcher.Threshold)
	}
	if c.Camera.Device < 0 {
		return fmt.Errorf("camera.device %d must not be negative", c.Camera.Device)
	}
	if c.Motion.Threshold < 0 || c.Motion.Threshold > 100 {
		return fmt.Errorf("motion.threshold %v out of range [0, 100]", c.Motion.Threshold)
	}
	return nil
}

// Save writes c to path as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
