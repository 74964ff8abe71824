// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultPort               = "8080"
	DefaultAdviceURL          = "https://nitinat-right-here.hf.space/getadvice"
	DefaultLLMProvider        = "hfspace"
	DefaultLogDir             = "logs"
	DefaultLogLevel           = "info"
	DefaultConfigFile         = "config.yaml"
	DefaultRateLimitPerMinute = 60
	DefaultRateLimitBurst     = 10
)

// Config 存储应用配置
type Config struct {
	Port               string   `yaml:"port"`
	AdviceURL          string   `yaml:"advice_url"`   // 外部分析服务地址
	LLMProvider        string   `yaml:"llm_provider"` // 注册表中的提供者名称
	ProxyURL           string   `yaml:"proxy_url"`    // 控制台客户端调用的分析接口
	LogDir             string   `yaml:"log_dir"`
	LogLevel           string   `yaml:"log_level"`
	DebugMode          bool     `yaml:"debug_mode"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	TrustedProxies     []string `yaml:"trusted_proxies"` // 为空时忽略 X-Forwarded-For，按连接地址限流
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Port:               DefaultPort,
		AdviceURL:          DefaultAdviceURL,
		LLMProvider:        DefaultLLMProvider,
		LogDir:             DefaultLogDir,
		LogLevel:           DefaultLogLevel,
		DebugMode:          true,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		RateLimitBurst:     DefaultRateLimitBurst,
	}
}

// Load 依次应用默认值、YAML 文件和环境变量
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := Default()

	if err := config.loadFile(getEnv("CONFIG_FILE", DefaultConfigFile)); err != nil {
		return nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if config.ProxyURL == "" {
		config.ProxyURL = fmt.Sprintf("http://127.0.0.1:%s/api/analyze", config.Port)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadFile 读取 YAML 配置，文件不存在时跳过
func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取配置文件失败 %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.AdviceURL = getEnv("ADVICE_URL", c.AdviceURL)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.ProxyURL = getEnv("PROXY_URL", c.ProxyURL)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DebugMode = getEnvBool("DEBUG_MODE", c.DebugMode)
	c.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.TrustedProxies)

	var err error
	if c.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute); err != nil {
		return err
	}
	if c.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT 不能为空")
	}
	if err := validateHTTPURL("ADVICE_URL", c.AdviceURL); err != nil {
		return err
	}
	if err := validateHTTPURL("PROXY_URL", c.ProxyURL); err != nil {
		return err
	}
	if c.LLMProvider == "" {
		return errors.New("LLM_PROVIDER 不能为空")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE 必须为正数: %d", c.RateLimitPerMinute)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST 必须为正数: %d", c.RateLimitBurst)
	}
	return nil
}

// Addr 监听地址
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ProviderConfig 传给分析服务提供者的参数
func (c *Config) ProviderConfig() map[string]string {
	return map[string]string{"endpoint": c.AdviceURL}
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s 必须是 http(s) 地址: %q", key, raw)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s 不是有效的整数: %q", key, value)
	}
	return n, nil
}

// getEnvList 获取逗号分隔的环境变量
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
