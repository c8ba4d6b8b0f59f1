package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: ""},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:      RedisConfig{Dns: ""},
	}
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "some-dns"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.LLM.Model != DEFAULT_LLM_MODEL {
		t.Errorf("Expected default model %s, got %s", DEFAULT_LLM_MODEL, cnf.LLM.Model)
	}
	if cnf.Agents.WorkspaceDir != DEFAULT_WORKSPACE {
		t.Errorf("Expected default workspace %s, got %s", DEFAULT_WORKSPACE, cnf.Agents.WorkspaceDir)
	}
	if cnf.Agents.EnableShell {
		t.Error("Expected shell tool to be disabled by default")
	}
	if cnf.Queue.AgentRunQueue != DEFAULT_AGENT_RUNS || cnf.Queue.WebhookQueue != DEFAULT_WEBHOOKS {
		t.Errorf("Unexpected queue defaults: %+v", cnf.Queue)
	}
	if cnf.RateLimit.RequestsPerSecond != nil || cnf.RateLimit.Burst != nil {
		t.Error("Expected rate limiting to stay disabled")
	}
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cnf.RateLimit.Burst == nil || *cnf.RateLimit.Burst != 20 {
		t.Errorf("Expected burst of 20, got %v", cnf.RateLimit.Burst)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil || *cnf.RateLimit.CleanupIntervalSec != 10800 {
		t.Errorf("Expected cleanup interval of 10800, got %v", cnf.RateLimit.CleanupIntervalSec)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "titanforge.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
		LLM:         LLMConfig{Model: "gpt-4o-mini"},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("TITANFORGE_PROJECT_NAME", "Env Project")
	t.Setenv("TITANFORGE_AGENTS_ENABLE_SHELL", "true")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "Env Project" {
		t.Errorf("Expected ProjectName to be 'Env Project', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.DataSource.Dns != "temp-dns" {
		t.Errorf("Expected DataSource.Dns to be 'temp-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
	if loadedConfig.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Expected LLM.Model to be 'gpt-4o-mini', got '%s'", loadedConfig.LLM.Model)
	}
	if !loadedConfig.Agents.EnableShell {
		t.Error("Expected env override to enable the shell tool")
	}
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "titanforge.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "InitConfig Test",
		DataSource:  DataSourceConfig{Dns: "init-config-dns"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := InitConfig(tmpFile.Name()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if loadedConfig.ProjectName != "InitConfig Test" {
		t.Errorf("Expected ProjectName to be 'InitConfig Test', got '%s'", loadedConfig.ProjectName)
	}
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mocked"})
	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if cnf.ProjectName != "mocked" {
		t.Errorf("Expected mocked config, got %s", cnf.ProjectName)
	}
}
