package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort       string
	FirebaseProject  string
	StorageBucket    string
	Environment      string
	StorageBackend   string // "firestore" or "postgres"
	DatabaseDSN      string
	QuotaGB          int64
	SignedURLTTLSecs int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FirebaseProject:  getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", ""),
		Environment:      getEnv("ENVIRONMENT", "development"),
		StorageBackend:   getEnv("STORAGE_BACKEND", "firestore"),
		DatabaseDSN:      getEnv("DATABASE_DSN", ""),
		QuotaGB:          getEnvAsInt64("STORAGE_QUOTA_GB", 5),
		SignedURLTTLSecs: getEnvAsInt64("SIGNED_URL_TTL_SECONDS", 3600),
	}

	return config, nil
}

// QuotaBytes is the per-user storage limit shared by the quota ledger and any
// surface that displays remaining space.
func (c *Config) QuotaBytes() int64 {
	return c.QuotaGB * 1024 * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
