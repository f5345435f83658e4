// Package config loads service settings from defaults, an optional config
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported OCR engines
const (
	EngineTesseract = "tesseract"
	EnginePaddle    = "paddle"
	EngineVision    = "vision"
)

type Config struct {
	ServerPort string

	// OCR
	TesseractDataPath  string
	OCRLanguage        string
	OCREngine          string
	PaddleAPIURL       string
	RecognitionTimeout time.Duration

	// Wallet backend
	BackendURL     string
	BackendTimeout time.Duration

	// Upload session
	CompleteDelay          time.Duration
	MaxFileSize            int64
	LowConfidenceThreshold float64
	MaxMultipartMemory     int64

	LogLevel  string
	LogFormat string
}

// LoadConfig builds a Config. path may be empty; a missing .env is ignored.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:             v.GetString("server_port"),
		TesseractDataPath:      v.GetString("tessdata_prefix"),
		OCRLanguage:            v.GetString("ocr_language"),
		OCREngine:              strings.ToLower(v.GetString("ocr_engine")),
		PaddleAPIURL:           v.GetString("paddle_api_url"),
		RecognitionTimeout:     v.GetDuration("recognition_timeout"),
		BackendURL:             v.GetString("backend_url"),
		BackendTimeout:         v.GetDuration("backend_timeout"),
		CompleteDelay:          v.GetDuration("complete_delay"),
		MaxFileSize:            v.GetInt64("max_file_size"),
		LowConfidenceThreshold: v.GetFloat64("low_confidence_threshold"),
		MaxMultipartMemory:     v.GetInt64("max_multipart_memory"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("tessdata_prefix", "")
	v.SetDefault("ocr_language", "eng")
	v.SetDefault("ocr_engine", EngineTesseract)
	v.SetDefault("paddle_api_url", "")
	v.SetDefault("recognition_timeout", 30*time.Second)
	v.SetDefault("backend_url", "")
	v.SetDefault("backend_timeout", 15*time.Second)
	v.SetDefault("complete_delay", 2*time.Second)
	v.SetDefault("max_file_size", 5*1024*1024) // 5 MB
	v.SetDefault("low_confidence_threshold", 60.0)
	v.SetDefault("max_multipart_memory", 32<<20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	switch c.OCREngine {
	case EngineTesseract, EngineVision:
	case EnginePaddle:
		if c.PaddleAPIURL == "" {
			return fmt.Errorf("paddle_api_url is required when ocr_engine is %q", EnginePaddle)
		}
	default:
		return fmt.Errorf("unknown ocr_engine %q", c.OCREngine)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 100 {
		return fmt.Errorf("low_confidence_threshold must be within 0..100, got %v", c.LowConfidenceThreshold)
	}
	if c.RecognitionTimeout < 0 || c.BackendTimeout < 0 || c.CompleteDelay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
