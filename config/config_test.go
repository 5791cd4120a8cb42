package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name 'svc', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Pipeline.DrainTimeout != 30*time.Second {
			t.Errorf("expected default drain timeout 30s, got %v", cfg.Pipeline.DrainTimeout)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "svc", Environment: "staging"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name: is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment: must be one of"},
		{"invalid logging", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
		{"negative queue depth", func(c *ServiceConfig) {
			c.Pipeline.Stages = map[string]StageConfig{"split": {MaxQueueDepth: -1}}
		}, "config.pipeline"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestPipelineConfigStage(t *testing.T) {
	cfg := PipelineConfig{Stages: map[string]StageConfig{
		"chars": {MaxParallelism: 4, MaxQueueDepth: 16},
	}}
	sc, ok := cfg.Stage("chars")
	if !ok || sc.MaxParallelism != 4 || sc.MaxQueueDepth != 16 {
		t.Errorf("unexpected stage config %+v (found=%v)", sc, ok)
	}
	if _, ok := cfg.Stage("missing"); ok {
		t.Error("expected missing stage to report not found")
	}
}

type testAppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Source        string `yaml:"source" mapstructure:"source"`
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: splitter
environment: staging
source: words.txt
logging:
  level: debug
  format: json
pipeline:
  name: chars
  drain_timeout: 5s
  stages:
    validate:
      max_parallelism: 4
      max_queue_depth: 32
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load[testAppConfig]("splitter", WithConfigFile(configPath), WithFileSystem(&RealFileSystem{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Source != "words.txt" {
		t.Errorf("expected source 'words.txt', got %q", cfg.Source)
	}
	if cfg.Pipeline.DrainTimeout != 5*time.Second {
		t.Errorf("expected drain timeout 5s, got %v", cfg.Pipeline.DrainTimeout)
	}
	sc, ok := cfg.Pipeline.Stage("validate")
	if !ok || sc.MaxParallelism != 4 || sc.MaxQueueDepth != 32 {
		t.Errorf("unexpected stage config %+v", sc)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testAppConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("name: [unclosed"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	var cfg testAppConfig
	if err := LoadConfig("splitter", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "name: splitter\npipeline:\n  drain_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SPLIT_JOIN_PIPELINE_DRAIN_TIMEOUT", "7s")
	t.Setenv("SPLIT_JOIN_SOURCE", "stdin")

	cfg, err := Load[testAppConfig]("split-join", WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.DrainTimeout != 7*time.Second {
		t.Errorf("expected env to override drain timeout, got %v", cfg.Pipeline.DrainTimeout)
	}
	if cfg.Source != "stdin" {
		t.Errorf("expected env-only key to load, got %q", cfg.Source)
	}
	if cfg.Name != "splitter" {
		t.Errorf("expected file value to survive, got %q", cfg.Name)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		filepath.Join("..", "cmd", "flowkit", "config.yml"): true,
		".env.flowkit": true,
		".env":         true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("flowkit", LoaderConfig{})
	if want := filepath.Join("..", "cmd", "flowkit", "config.yml"); files.ConfigFile != want {
		t.Errorf("expected config file at %s, got %q", want, files.ConfigFile)
	}
	if files.EnvFile != ".env.flowkit" {
		t.Errorf("expected env file .env.flowkit, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("flowkit", LoaderConfig{ConfigFile: "custom.yml"})
	if explicit.ConfigFile != "custom.yml" {
		t.Errorf("expected explicit config file to win, got %q", explicit.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestEnvPrefix(t *testing.T) {
	tests := map[string]string{
		"flowkit":    "FLOWKIT",
		"split-join": "SPLIT_JOIN",
		"a.b":        "A_B",
	}
	for in, want := range tests {
		if got := EnvPrefix(in); got != want {
			t.Errorf("EnvPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvKeys(t *testing.T) {
	keys := EnvKeys(reflect.TypeOf(&testAppConfig{}))
	has := make(map[string]bool, len(keys))
	for _, k := range keys {
		has[k] = true
	}
	for _, want := range []string{"name", "source", "logging.level", "pipeline.drain_timeout", "pipeline.name"} {
		if !has[want] {
			t.Errorf("expected key %q in %v", want, keys)
		}
	}
	if has["pipeline.stages"] {
		t.Error("map-valued fields must not be bound")
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}
