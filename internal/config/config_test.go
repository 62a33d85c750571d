package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"relative address", func(c *Config) { c.Elasticsearch.Addresses = []string{"localhost:9200"} }, "absolute URL"},
		{"api key with username", func(c *Config) {
			c.Elasticsearch.APIKey = "k"
			c.Elasticsearch.Username = "elastic"
		}, "mutually exclusive"},
		{"password without username", func(c *Config) { c.Elasticsearch.Password = "p" }, "requires"},
		{"bad index prefix", func(c *Config) { c.Elasticsearch.IndexPrefix = "a*b" }, "index_prefix"},
		{"good index prefix", func(c *Config) { c.Elasticsearch.IndexPrefix = "test-" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if len(cfg.Elasticsearch.Addresses) != 1 || cfg.Elasticsearch.Addresses[0] != "http://localhost:9200" {
		t.Errorf("expected default address, got %v", cfg.Elasticsearch.Addresses)
	}
	if cfg.Elasticsearch.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.Elasticsearch.MaxRetries)
	}
	if cfg.Elasticsearch.RequestTimeoutSec != 30 {
		t.Errorf("expected RequestTimeoutSec=30, got %d", cfg.Elasticsearch.RequestTimeoutSec)
	}
	if cfg.Mapping.TypeHintField != "_class" {
		t.Errorf("expected TypeHintField=_class, got %q", cfg.Mapping.TypeHintField)
	}
	if !cfg.Mapping.TypeHints() {
		t.Error("expected type hints on by default")
	}
	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("unexpected http timeouts: %+v", cfg.HTTP)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		Elasticsearch: ElasticsearchConfig{Addresses: []string{"https://es:9243"}, MaxRetries: 1, RequestTimeoutSec: 5},
		Mapping:       MappingConfig{WriteTypeHints: &off, TypeHintField: "_type"},
		HTTP:          HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
	}
	cfg.ApplyDefaults()

	if cfg.Elasticsearch.Addresses[0] != "https://es:9243" || cfg.Elasticsearch.MaxRetries != 1 {
		t.Errorf("elasticsearch overridden: %+v", cfg.Elasticsearch)
	}
	if cfg.Mapping.TypeHints() || cfg.Mapping.TypeHintField != "_type" {
		t.Errorf("mapping overridden: %+v", cfg.Mapping)
	}
	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("ESODM_TEST_PASSWORD", "s3cret")
	data := []byte(`
elasticsearch:
  addresses: ["${ESODM_TEST_ADDR:-http://es:9200}"]
  username: elastic
  password: ${ESODM_TEST_PASSWORD}
mapping:
  write_type_hints: false
  runtime_fields_dir: /etc/esodm/runtime
http:
  port: 8081
  api_keys: [a, b]
logging:
  level: debug
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Elasticsearch.Addresses[0] != "http://es:9200" {
		t.Errorf("address = %q", cfg.Elasticsearch.Addresses[0])
	}
	if cfg.Elasticsearch.Password != "s3cret" {
		t.Errorf("password = %q", cfg.Elasticsearch.Password)
	}
	if cfg.Mapping.TypeHints() {
		t.Error("write_type_hints: false not honored")
	}
	if cfg.Mapping.RuntimeFieldsDir != "/etc/esodm/runtime" || len(cfg.HTTP.APIKeys) != 2 || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte("http:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if _, err := Load("missing-env"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}
