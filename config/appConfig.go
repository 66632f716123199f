package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig -- полная конфигурация сервиса синхронизации отзывов.
type AppConfig struct {
	Postgres  PostgresConfig `yaml:"postgres"`
	Play      PlayConfig     `yaml:"play"`
	AppStore  AppStoreConfig `yaml:"appstore"`
	Notify    NotifyConfig   `yaml:"notify"`
	Customers []CustomerSync `yaml:"customers"`
}

// PlayConfig -- доступ к API Google Play и к бакетам с архивами.
type PlayConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	// запросов в минуту к reviews.list; 0 -- лимит по умолчанию
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// AppStoreConfig -- ключ App Store Connect.
type AppStoreConfig struct {
	KeyID              string `yaml:"key_id"`
	IssuerID           string `yaml:"issuer_id"`
	KeyFile            string `yaml:"key_file"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// NotifyConfig -- эндпоинт уведомлений об итогах прогона.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	AuthToken  string `yaml:"auth_token"`
}

// CustomerSync -- один клиент и его источники. Отсутствующая секция источника
// означает, что у клиента нет аккаунта в этом магазине.
type CustomerSync struct {
	Name     string                `yaml:"name"`
	Play     *CustomerPlaySync     `yaml:"play"`
	AppStore *CustomerAppStoreSync `yaml:"appstore"`
}

type CustomerPlaySync struct {
	PackageName   string `yaml:"package_name"`
	ArchiveBucket string `yaml:"archive_bucket"`
}

type CustomerAppStoreSync struct {
	AppID string `yaml:"app_id"`
}

// LoadConfig читает и валидирует yaml-конфиг.
func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", filename, err)
	}
	config.Postgres.ApplyEnvDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return config, nil
}

func (c *AppConfig) validate() error {
	if len(c.Customers) == 0 {
		return fmt.Errorf("no customers configured")
	}
	for i, customer := range c.Customers {
		if customer.Name == "" {
			return fmt.Errorf("customer #%d has no name", i)
		}
		if customer.Play == nil && customer.AppStore == nil {
			return fmt.Errorf("customer %s has no sources", customer.Name)
		}
		if customer.Play != nil && customer.Play.PackageName == "" {
			return fmt.Errorf("customer %s: play section without package_name", customer.Name)
		}
		if customer.AppStore != nil && customer.AppStore.AppID == "" {
			return fmt.Errorf("customer %s: appstore section without app_id", customer.Name)
		}
	}
	return nil
}
