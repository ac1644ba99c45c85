/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, and the external
directory/media provider endpoints.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Directory Provider Settings
	DirectoryURL   string
	DirectoryCount int

	// Media Provider Settings
	MediaURLs       []string
	ProviderTimeout time.Duration

	// Optional S3 gallery settings. When BucketName is empty the HTTP media
	// provider is used instead.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Directory Provider Settings ---
	cfg.DirectoryURL = os.Getenv("DIRECTORY_URL")
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = "https://randomuser.me/api/"
	}

	countStr := os.Getenv("DIRECTORY_COUNT")
	if countStr == "" {
		countStr = "10"
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 1 {
		return nil, fmt.Errorf("invalid DIRECTORY_COUNT environment variable: %q", countStr)
	}
	cfg.DirectoryCount = count

	// --- Media Provider Settings ---
	mediaStr := os.Getenv("MEDIA_URLS")
	if mediaStr == "" {
		mediaStr = "https://picsum.photos/v2/list?page=1&limit=50,https://picsum.photos/v2/list?page=2&limit=50"
	}
	for _, endpoint := range strings.Split(mediaStr, ",") {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			cfg.MediaURLs = append(cfg.MediaURLs, trimmed)
		}
	}

	timeoutStr := os.Getenv("PROVIDER_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "15s"
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT environment variable: %q", timeoutStr)
	}
	cfg.ProviderTimeout = timeout

	// --- Optional S3 Gallery Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	if cfg.S3BucketName != "" {
		cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
		if cfg.S3AccessKeyID == "" {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID environment variable is required when S3_BUCKET_NAME is set")
		}

		cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
		if cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY environment variable is required when S3_BUCKET_NAME is set")
		}
	}

	return cfg, nil
}
