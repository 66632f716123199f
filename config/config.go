package config

import (
	"os"
)

// DatabaseConfig умеет собирать строку подключения.
type DatabaseConfig interface {
	GetConnectionString() string
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
