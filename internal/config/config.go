package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Report   ReportConfig
	Vision   VisionConfig
	Voice    VoiceConfig
	Sessions SessionConfig
	Logging  LoggingConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	authCfg, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	report, err := loadReportConfig()
	if err != nil {
		return nil, err
	}

	vision, err := loadVisionConfig()
	if err != nil {
		return nil, err
	}

	logging, err := loadLoggingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: database,
		Auth:     authCfg,
		AI:       ai,
		Report:   report,
		Vision:   vision,
		Voice: VoiceConfig{
			MaleAssistantID:   strings.TrimSpace(os.Getenv("VAPI_MALE_ASSISTANT_ID")),
			FemaleAssistantID: strings.TrimSpace(os.Getenv("VAPI_FEMALE_ASSISTANT_ID")),
		},
		Sessions: SessionConfig{
			ReadPolicy: getEnvOrDefault("SESSION_READ_POLICY", "owner"),
		},
		Logging: logging,
	}, nil
}

// ModelsConfig 只包含调用外部模型所需的配置，供命令行工具使用。
type ModelsConfig struct {
	AI     AIConfig
	Vision VisionConfig
}

// LoadModels 只加载 Ark 与视觉模型配置，不校验服务端的鉴权和数据库配置。
func LoadModels() (*ModelsConfig, error) {
	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	vision, err := loadVisionConfig()
	if err != nil {
		return nil, err
	}

	return &ModelsConfig{AI: ai, Vision: vision}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址与跨域来源。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// DatabaseConfig 描述数据库连接。sqlite: 前缀使用内嵌 SQLite，其余视为 Postgres DSN。
type DatabaseConfig struct {
	URL          string
	ReadyTimeout time.Duration
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	readyTimeout, err := parseDurationEnv("DATABASE_READY_TIMEOUT", 30*time.Second)
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", "sqlite:medvoice.db"),
		ReadyTimeout: readyTimeout,
	}, nil
}

// AuthConfig 描述调用方身份校验方式。
type AuthConfig struct {
	Mode          string
	JWTSecret     string
	IdentityClaim string
}

func loadAuthConfig() (AuthConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("AUTH_MODE", "jwt"))
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))

	switch mode {
	case "jwt":
		if secret == "" {
			return AuthConfig{}, fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case "header":
	default:
		return AuthConfig{}, fmt.Errorf("invalid AUTH_MODE value: %q", mode)
	}

	return AuthConfig{
		Mode:          mode,
		JWTSecret:     secret,
		IdentityClaim: getEnvOrDefault("JWT_IDENTITY_CLAIM", "email,sub"),
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ReportConfig 描述报告生成的超时与缓存。
type ReportConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func loadReportConfig() (ReportConfig, error) {
	timeout, err := parseDurationEnv("REPORT_TIMEOUT", 60*time.Second)
	if err != nil {
		return ReportConfig{}, err
	}
	ttl, err := parseDurationEnv("REPORT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return ReportConfig{}, err
	}
	return ReportConfig{Timeout: timeout, CacheTTL: ttl}, nil
}

// VisionConfig 描述图片分析所用的 OpenAI 兼容接口。
type VisionConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	MaxImageBytes int
}

// Enabled 表示是否配置了视觉模型密钥。
func (c VisionConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadVisionConfig() (VisionConfig, error) {
	timeout, err := parseDurationEnv("VISION_TIMEOUT", 60*time.Second)
	if err != nil {
		return VisionConfig{}, err
	}

	maxBytes := 5 << 20
	if override, err := parseOptionalIntEnv("IMAGE_MAX_BYTES"); err != nil {
		return VisionConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return VisionConfig{}, fmt.Errorf("invalid IMAGE_MAX_BYTES value: %d", *override)
		}
		maxBytes = *override
	}

	maxTokens := 1500
	if override, err := parseOptionalIntEnv("VISION_MAX_TOKENS"); err != nil {
		return VisionConfig{}, err
	} else if override != nil && *override > 0 {
		maxTokens = *override
	}

	return VisionConfig{
		APIKey:        strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		BaseURL:       getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:         getEnvOrDefault("VISION_MODEL", "google/gemini-2.0-flash-001"),
		MaxTokens:     maxTokens,
		Timeout:       timeout,
		MaxImageBytes: maxBytes,
	}, nil
}

// VoiceConfig 描述前端语音助手，按医生性别选择。
type VoiceConfig struct {
	MaleAssistantID   string
	FemaleAssistantID string
}

// SessionConfig 描述会话读取策略：owner 或 open。
type SessionConfig struct {
	ReadPolicy string
}

// LoggingConfig 描述日志输出。
type LoggingConfig struct {
	Production bool
	FilePath   string
}

func loadLoggingConfig() (LoggingConfig, error) {
	env := strings.ToLower(getEnvOrDefault("APP_ENV", "development"))
	production := env == "production" || env == "prod"

	production, err := parseBoolEnv("LOG_JSON", production)
	if err != nil {
		return LoggingConfig{}, err
	}

	return LoggingConfig{
		Production: production,
		FilePath:   strings.TrimSpace(os.Getenv("LOG_FILE")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 支持 "90s" 形式，也接受纯数字秒数。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
