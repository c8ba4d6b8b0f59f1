/*
Copyright 2024 TitanForge Authors.

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

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT       = "8000"
	DEFAULT_LLM_MODEL  = "mock-response"
	DEFAULT_WORKSPACE  = "./agent_files_workspace"
	DEFAULT_AGENT_RUNS = "titanforge:agent_runs"
	DEFAULT_WEBHOOKS   = "titanforge:webhooks"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"TITANFORGE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"TITANFORGE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"TITANFORGE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"TITANFORGE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"TITANFORGE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"TITANFORGE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"TITANFORGE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"TITANFORGE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"TITANFORGE_REDIS_SKIP_TLS_VERIFY"`
}

// QueueConfig names the asynq queues used to trigger agent runs and deliver webhooks.
type QueueConfig struct {
	AgentRunQueue  string `json:"agent_run_queue" envconfig:"TITANFORGE_QUEUE_AGENT_RUN"`
	WebhookQueue   string `json:"webhook_queue" envconfig:"TITANFORGE_QUEUE_WEBHOOK"`
	MaxRetry       int    `json:"max_retry" envconfig:"TITANFORGE_QUEUE_MAX_RETRY"`
	Concurrency    int    `json:"concurrency" envconfig:"TITANFORGE_QUEUE_CONCURRENCY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"TITANFORGE_QUEUE_MONITORING_PORT"`
}

// LLMConfig points the "think" step at an OpenAI compatible chat completions endpoint.
type LLMConfig struct {
	Endpoint       string `json:"endpoint" envconfig:"TITANFORGE_LLM_ENDPOINT"`
	Model          string `json:"model" envconfig:"TITANFORGE_LLM_MODEL"`
	APIKey         string `json:"api_key" envconfig:"TITANFORGE_LLM_API_KEY"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"TITANFORGE_LLM_TIMEOUT_SECONDS"`
	MaxAttempts    int    `json:"max_attempts" envconfig:"TITANFORGE_LLM_MAX_ATTEMPTS"`
}

type AgentsConfig struct {
	WorkspaceDir          string `json:"workspace_dir" envconfig:"TITANFORGE_AGENTS_WORKSPACE_DIR"`
	BacklogFile           string `json:"backlog_file" envconfig:"TITANFORGE_AGENTS_BACKLOG_FILE"`
	EnableShell           bool   `json:"enable_shell" envconfig:"TITANFORGE_AGENTS_ENABLE_SHELL"`
	ShellTimeoutSeconds   int    `json:"shell_timeout_seconds" envconfig:"TITANFORGE_AGENTS_SHELL_TIMEOUT_SECONDS"`
	RunLockSeconds        int    `json:"run_lock_seconds" envconfig:"TITANFORGE_AGENTS_RUN_LOCK_SECONDS"`
	StuckTaskAfterMinutes int    `json:"stuck_task_after_minutes" envconfig:"TITANFORGE_AGENTS_STUCK_TASK_AFTER_MINUTES"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TITANFORGE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TITANFORGE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TITANFORGE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"TITANFORGE_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"TITANFORGE_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type TelemetryConfig struct {
	Enabled    bool   `json:"enabled" envconfig:"TITANFORGE_TELEMETRY_ENABLED"`
	PostHogKey string `json:"posthog_key" envconfig:"TITANFORGE_POSTHOG_KEY"`
	PostHogURL string `json:"posthog_url" envconfig:"TITANFORGE_POSTHOG_URL"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"TITANFORGE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	LLM          LLMConfig        `json:"llm"`
	Agents       AgentsConfig     `json:"agents"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Telemetry    TelemetryConfig  `json:"telemetry"`
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
	err = envconfig.Process("titanforge", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called titanforge.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "TitanForge MCP"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.Queue.addDefaults()
	cnf.LLM.addDefaults()
	cnf.Agents.addDefaults()

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
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (q *QueueConfig) addDefaults() {
	if q.AgentRunQueue == "" {
		q.AgentRunQueue = DEFAULT_AGENT_RUNS
	}
	if q.WebhookQueue == "" {
		q.WebhookQueue = DEFAULT_WEBHOOKS
	}
	if q.MaxRetry <= 0 {
		q.MaxRetry = 5
	}
	if q.Concurrency <= 0 {
		q.Concurrency = 4
	}
	if q.MonitoringPort == "" {
		q.MonitoringPort = "5004"
	}
}

func (l *LLMConfig) addDefaults() {
	if l.Model == "" {
		log.Printf("Warning: LLM model not specified. Using %s", DEFAULT_LLM_MODEL)
		l.Model = DEFAULT_LLM_MODEL
	}
	if l.Endpoint == "" {
		l.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if l.TimeoutSeconds <= 0 {
		l.TimeoutSeconds = 30
	}
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = 3
	}
}

func (a *AgentsConfig) addDefaults() {
	if a.WorkspaceDir == "" {
		a.WorkspaceDir = DEFAULT_WORKSPACE
	}
	if a.ShellTimeoutSeconds <= 0 {
		a.ShellTimeoutSeconds = 60
	}
	if a.RunLockSeconds <= 0 {
		a.RunLockSeconds = 120
	}
	if a.StuckTaskAfterMinutes <= 0 {
		a.StuckTaskAfterMinutes = 60
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
