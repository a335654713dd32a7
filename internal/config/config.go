// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充，二进制入口使用。
var Conf Config

// envPrefix 环境变量前缀，例如 QUICKPLAN_CLIENT_BASE_URL 覆盖 client.base_url。
const envPrefix = "QUICKPLAN"

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Client      ClientConfig      `mapstructure:"client"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Tika        TikaConfig        `mapstructure:"tika"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	LLM         LLMConfig         `mapstructure:"llm"`
}

// ClientConfig 存储客户端访问远端 API 的配置。
type ClientConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	RateLimit    float64       `mapstructure:"rate_limit"` // 每秒请求数，0 表示不限流
	Burst        int           `mapstructure:"burst"`
	Language     string        `mapstructure:"language"`
	CooldownTick time.Duration `mapstructure:"cooldown_tick"`
	RefreshSkew  time.Duration `mapstructure:"refresh_skew"`
}

// CredentialsConfig 存储本地凭证存储的配置。
type CredentialsConfig struct {
	Backend    string      `mapstructure:"backend"` // memory | sqlite | redis
	Namespace  string      `mapstructure:"namespace"`
	SQLitePath string      `mapstructure:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// TikaConfig 存储 Tika 服务器相关的配置，图片文字识别使用。
type TikaConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ServerConfig 存储开发后端的配置。
type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Mode             string        `mapstructure:"mode"`
	Storage          string        `mapstructure:"storage"`   // memory | mysql
	Blacklist        string        `mapstructure:"blacklist"` // memory | redis
	Metrics          bool          `mapstructure:"metrics"`
	CORSOrigins      []string      `mapstructure:"cors_origins"`
	SendCodeInterval time.Duration `mapstructure:"send_code_interval"`
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
}

// DatabaseConfig 存储数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LLMConfig 存储开发后端助手使用的大模型接口配置，base_url 为空时不启用。
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.base_url", "http://localhost:8080/")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.retries", 0)
	v.SetDefault("client.retry_backoff", 500*time.Millisecond)
	v.SetDefault("client.rate_limit", 0)
	v.SetDefault("client.burst", 1)
	v.SetDefault("client.language", "zh")
	v.SetDefault("client.cooldown_tick", time.Second)
	v.SetDefault("client.refresh_skew", 5*time.Minute)

	v.SetDefault("credentials.backend", "memory")
	v.SetDefault("credentials.namespace", "user_prefs")
	v.SetDefault("credentials.sqlite_path", "quickplan.db")
	v.SetDefault("credentials.redis.addr", "localhost:6379")
	v.SetDefault("credentials.redis.password", "")
	v.SetDefault("credentials.redis.db", 0)

	v.SetDefault("tika.server_url", "")
	v.SetDefault("tika.timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.storage", "memory")
	v.SetDefault("server.blacklist", "memory")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.send_code_interval", 60*time.Second)
	v.SetDefault("server.code_ttl", 5*time.Minute)

	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("jwt.secret", "quickplan-dev-secret")
	v.SetDefault("jwt.access_token_expire_hours", 2)
	v.SetDefault("jwt.refresh_token_expire_days", 7)

	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.timeout", 60*time.Second)
}

// Load 读取配置：默认值 -> YAML 文件（configPath 为空时跳过）-> QUICKPLAN_ 前缀的环境变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if !strings.HasSuffix(cfg.Client.BaseURL, "/") {
		cfg.Client.BaseURL += "/"
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
