/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT          = "5001"
	DEFAULT_WEBHOOK_QUEUE = "ledgerd_webhooks"
	DEFAULT_KAFKA_TOPIC   = "ledger_entries"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"LEDGERD_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"LEDGERD_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"LEDGERD_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"LEDGERD_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"LEDGERD_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"LEDGERD_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns             string        `json:"dns" envconfig:"LEDGERD_DATA_SOURCE_DNS"`
	MaxOpenConns    int           `json:"max_open_conns" envconfig:"LEDGERD_DATA_SOURCE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" envconfig:"LEDGERD_DATA_SOURCE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" envconfig:"LEDGERD_DATA_SOURCE_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" envconfig:"LEDGERD_DATA_SOURCE_CONN_MAX_IDLE_TIME"`
	ConnectTimeout  time.Duration `json:"connect_timeout" envconfig:"LEDGERD_DATA_SOURCE_CONNECT_TIMEOUT"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"LEDGERD_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"LEDGERD_REDIS_SKIP_TLS_VERIFY"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" envconfig:"LEDGERD_KAFKA_BROKERS"`
	Topic   string   `json:"topic" envconfig:"LEDGERD_KAFKA_TOPIC"`
}

type QueueConfig struct {
	WebhookQueue   string `json:"webhook_queue" envconfig:"LEDGERD_QUEUE_WEBHOOK_QUEUE"`
	MonitoringPort string `json:"monitoring_port" envconfig:"LEDGERD_QUEUE_MONITORING_PORT"`
	MaxRetry       int    `json:"max_retry" envconfig:"LEDGERD_QUEUE_MAX_RETRY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"LEDGERD_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"LEDGERD_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"LEDGERD_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"LEDGERD_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"LEDGERD_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
	Timeout time.Duration     `json:"timeout" envconfig:"LEDGERD_WEBHOOK_TIMEOUT"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"LEDGERD_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"LEDGERD_ENABLE_TELEMETRY"`
	TelemetryKey    string           `json:"telemetry_key" envconfig:"LEDGERD_TELEMETRY_KEY"`
	AccountCacheTTL time.Duration    `json:"account_cache_ttl" envconfig:"LEDGERD_ACCOUNT_CACHE_TTL"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Kafka           KafkaConfig      `json:"kafka"`
	Queue           QueueConfig      `json:"queue"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("ledgerd", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded. Create a json file called ledgerd.json or set LEDGERD_* env variables")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Ledgerd Server"
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		return errors.New("secret key is required when server.secure is enabled")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.DataSource.MaxOpenConns == 0 {
		cnf.DataSource.MaxOpenConns = 25
	}
	if cnf.DataSource.MaxIdleConns == 0 {
		cnf.DataSource.MaxIdleConns = 10
	}
	if cnf.DataSource.ConnMaxLifetime == 0 {
		cnf.DataSource.ConnMaxLifetime = 30 * time.Minute
	}
	if cnf.DataSource.ConnMaxIdleTime == 0 {
		cnf.DataSource.ConnMaxIdleTime = 5 * time.Minute
	}
	if cnf.DataSource.ConnectTimeout == 0 {
		cnf.DataSource.ConnectTimeout = 30 * time.Second
	}

	if cnf.AccountCacheTTL == 0 {
		cnf.AccountCacheTTL = 5 * time.Minute
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}
	if cnf.Queue.MaxRetry == 0 {
		cnf.Queue.MaxRetry = 5
	}
	if cnf.Notification.Webhook.Timeout == 0 {
		cnf.Notification.Webhook.Timeout = 10 * time.Second
	}

	if len(cnf.Kafka.Brokers) > 0 && cnf.Kafka.Topic == "" {
		cnf.Kafka.Topic = DEFAULT_KAFKA_TOPIC
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
