package app

import (
	"os"
	"path/filepath"
	"strconv"
)

const defaultMaxFileSize = 10 * 1024 * 1024

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr        string
	DBPath      string
	UploadDir   string
	PublicDir   string
	MaxFileSize int64
}

// LoadServerConfig reads the configuration from the environment, applying
// defaults for anything unset.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        getEnv("WEBCHAT_ADDR", ":8080"),
		DBPath:      DefaultDBPath(),
		UploadDir:   DefaultUploadDir(),
		PublicDir:   getEnv("WEBCHAT_PUBLIC_DIR", "public"),
		MaxFileSize: getEnvInt64("WEBCHAT_MAX_UPLOAD_BYTES", defaultMaxFileSize),
	}
}

// DefaultDBPath returns the SQLite file location, preferring the explicit
// path over the data-dir fallback.
func DefaultDBPath() string {
	if env := os.Getenv("WEBCHAT_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("WEBCHAT_DATA_DIR"); env != "" {
		return filepath.Join(env, "webchat.db")
	}
	return filepath.Join("data", "webchat.db")
}

// DefaultUploadDir returns where uploaded binaries are stored.
func DefaultUploadDir() string {
	if env := os.Getenv("WEBCHAT_UPLOAD_DIR"); env != "" {
		return env
	}
	if env := os.Getenv("WEBCHAT_DATA_DIR"); env != "" {
		return filepath.Join(env, "uploads")
	}
	return filepath.Join("data", "uploads")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
