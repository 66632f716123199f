package config

import (
	"fmt"
)

// PostgresConfig represents the configuration needed to connect to a PostgreSQL database
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

func (pc *PostgresConfig) GetConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// GetPostgresConfig собирает конфигурацию Postgres из окружения.
func GetPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnv("POSTGRES_PORT", "5432"),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:   getEnv("POSTGRES_NAME", "postgres"),
	}
}

// ApplyEnvDefaults подставляет значения из окружения в пустые поля конфига из
// yaml: файл имеет приоритет, окружение закрывает дыры.
func (pc *PostgresConfig) ApplyEnvDefaults() {
	defaults := GetPostgresConfig()
	if pc.Host == "" {
		pc.Host = defaults.Host
	}
	if pc.Port == "" {
		pc.Port = defaults.Port
	}
	if pc.User == "" {
		pc.User = defaults.User
	}
	if pc.Password == "" {
		pc.Password = defaults.Password
	}
	if pc.DBName == "" {
		pc.DBName = defaults.DBName
	}
}
