package config

import (
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"PORT", "ADVICE_URL", "LLM_PROVIDER", "PROXY_URL", "LOG_DIR", "LOG_LEVEL",
	"DEBUG_MODE", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST", "CONFIG_FILE",
	"TRUSTED_PROXIES",
}

// clearEnv 清空相关环境变量，并指向不存在的配置文件
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.AdviceURL != DefaultAdviceURL || cfg.LLMProvider != DefaultLLMProvider {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ProxyURL != "http://127.0.0.1:8080/api/analyze" {
		t.Errorf("ProxyURL = %s", cfg.ProxyURL)
	}
	if !cfg.DebugMode || cfg.RateLimitPerMinute != 60 || cfg.RateLimitBurst != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none", cfg.TrustedProxies)
	}
	if cfg.ProviderConfig()["endpoint"] != DefaultAdviceURL {
		t.Errorf("ProviderConfig = %v", cfg.ProviderConfig())
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := "port: \"9090\"\nadvice_url: http://advice.local/getadvice\nlog_level: debug\nrate_limit_burst: 3\n"
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG_MODE", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.0/8,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" || cfg.AdviceURL != "http://advice.local/getadvice" {
		t.Errorf("YAML not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("环境变量应覆盖 YAML, LogLevel = %s", cfg.LogLevel)
	}
	if cfg.DebugMode {
		t.Error("DebugMode should be false")
	}
	if cfg.RateLimitBurst != 3 {
		t.Errorf("RateLimitBurst = %d", cfg.RateLimitBurst)
	}
	if cfg.ProxyURL != "http://127.0.0.1:9090/api/analyze" {
		t.Errorf("ProxyURL = %s", cfg.ProxyURL)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "10.0.0.0/8" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("Addr = %s", cfg.Addr())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"ftp advice url", "ADVICE_URL", "ftp://example.com"},
		{"relative proxy url", "PROXY_URL", "/api/analyze"},
		{"zero rate", "RATE_LIMIT_PER_MINUTE", "0"},
		{"negative burst", "RATE_LIMIT_BURST", "-1"},
		{"non numeric", "RATE_LIMIT_BURST", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q should be rejected", tt.key, tt.val)
			}
		})
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Error("expected YAML parse error")
	}
}
