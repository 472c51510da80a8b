package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig 评估服务 HTTP 配置
type ServerConfig struct {
	Listen         string // 监听地址，例如 ":8080"
	ReadTimeout    int    // 读超时（秒），默认 10
	WriteTimeout   int    // 写超时（秒），默认 10
	AuthEnabled    bool   // 是否启用 Bearer Token 鉴权
	TokenStoreDir  string // Token 存储目录（Badger 数据库）
	RatePerSecond  float64
	RateBurst      int
	WatchQueueSize int // watch 推送队列长度，默认 64
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	TTLSeconds int // 缓存有效期（秒），0 表示关闭缓存
	MaxEntries int // 最大缓存条目数
}

// AuditConfig 审计日志（SQLite）配置
type AuditConfig struct {
	Path            string // SQLite 数据库路径，为空则关闭审计
	BatchSize       int    // 批量写入条数，默认 64
	FlushIntervalMS int    // 批量写入间隔（毫秒），默认 500
}

// EvalConfig 评估接口配置
type EvalConfig struct {
	BatchMaxSize int // 批量评估单次最大条数，默认 256
	TableMaxRows int // 数值表单次最大行数，默认 4096
}

// Config 应用配置
type Config struct {
	Server              ServerConfig
	Cache               CacheConfig
	Audit               AuditConfig
	Eval                EvalConfig
	SnapshotDir         string // 用量快照目录（JSON 文件）
	SnapshotIntervalSec int    // 快照写入间隔（秒），默认 60
	LogLevel            string // 日志级别
	LogFile             string // 日志文件路径（可选）
	MetricsListen       string // 指标服务监听地址，为空则关闭
}

var globalConfig *Config
var configFilePath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return configFilePath
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Server struct {
		Listen         string  `yaml:"listen" json:"listen"`
		ReadTimeout    int     `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout   int     `yaml:"write_timeout" json:"write_timeout"`
		AuthEnabled    *bool   `yaml:"auth_enabled" json:"auth_enabled"`
		TokenStoreDir  string  `yaml:"token_store_dir" json:"token_store_dir"`
		RatePerSecond  float64 `yaml:"rate_per_second" json:"rate_per_second"`
		RateBurst      int     `yaml:"rate_burst" json:"rate_burst"`
		WatchQueueSize int     `yaml:"watch_queue_size" json:"watch_queue_size"`
	} `yaml:"server" json:"server"`
	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds" json:"ttl_seconds"`
		MaxEntries int `yaml:"max_entries" json:"max_entries"`
	} `yaml:"cache" json:"cache"`
	Audit struct {
		Path            string `yaml:"path" json:"path"`
		BatchSize       int    `yaml:"batch_size" json:"batch_size"`
		FlushIntervalMS int    `yaml:"flush_interval_ms" json:"flush_interval_ms"`
	} `yaml:"audit" json:"audit"`
	Eval struct {
		BatchMaxSize int `yaml:"batch_max_size" json:"batch_max_size"`
		TableMaxRows int `yaml:"table_max_rows" json:"table_max_rows"`
	} `yaml:"eval" json:"eval"`
	SnapshotDir         string `yaml:"snapshot_dir" json:"snapshot_dir"`
	SnapshotIntervalSec int    `yaml:"snapshot_interval_sec" json:"snapshot_interval_sec"`
	LogLevel            string `yaml:"log_level" json:"log_level"`
	LogFile             string `yaml:"log_file" json:"log_file"`
	MetricsListen       string `yaml:"metrics_listen" json:"metrics_listen"`
}

// Load 加载配置
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile 从指定文件加载配置
// 优先级：配置文件 > 环境变量 > 默认值
func LoadFromFile(filePath string) (*Config, error) {
	if globalConfig != nil && configFilePath == filePath {
		return globalConfig, nil
	}

	// 尝试加载配置文件（可选，缺省时全部走环境变量）
	var configFile *ConfigFile
	if filePath != "" {
		var err error
		configFile, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Listen: getStringFromSources(configFile != nil && configFile.Server.Listen != "",
				safeServerString(configFile, func(cf *ConfigFile) string { return cf.Server.Listen }),
				getEnv("SERVER_LISTEN", ":8080")),
			ReadTimeout: getPositiveIntFromSources(
				safeServerInt(configFile, func(cf *ConfigFile) int { return cf.Server.ReadTimeout }),
				parseIntEnv("SERVER_READ_TIMEOUT", 10)),
			WriteTimeout: getPositiveIntFromSources(
				safeServerInt(configFile, func(cf *ConfigFile) int { return cf.Server.WriteTimeout }),
				parseIntEnv("SERVER_WRITE_TIMEOUT", 10)),
			AuthEnabled: func() bool {
				if configFile != nil && configFile.Server.AuthEnabled != nil {
					return *configFile.Server.AuthEnabled
				}
				return parseBoolEnv("SERVER_AUTH_ENABLED", false)
			}(),
			TokenStoreDir: getStringFromSources(configFile != nil && configFile.Server.TokenStoreDir != "",
				safeServerString(configFile, func(cf *ConfigFile) string { return cf.Server.TokenStoreDir }),
				getEnv("TOKEN_STORE_DIR", "data/tokens")),
			RatePerSecond: func() float64 {
				if configFile != nil && configFile.Server.RatePerSecond > 0 {
					return configFile.Server.RatePerSecond
				}
				return parseFloatEnv("SERVER_RATE_PER_SECOND", 50)
			}(),
			RateBurst: getPositiveIntFromSources(
				safeServerInt(configFile, func(cf *ConfigFile) int { return cf.Server.RateBurst }),
				parseIntEnv("SERVER_RATE_BURST", 100)),
			WatchQueueSize: getPositiveIntFromSources(
				safeServerInt(configFile, func(cf *ConfigFile) int { return cf.Server.WatchQueueSize }),
				parseIntEnv("SERVER_WATCH_QUEUE_SIZE", 64)),
		},
		Cache: CacheConfig{
			TTLSeconds: func() int {
				// TTL 允许显式配置为 0（关闭缓存）
				if configFile != nil {
					return configFile.Cache.TTLSeconds
				}
				return parseIntEnv("CACHE_TTL_SECONDS", 300)
			}(),
			MaxEntries: getPositiveIntFromSources(
				func() int {
					if configFile == nil {
						return 0
					}
					return configFile.Cache.MaxEntries
				}(),
				parseIntEnv("CACHE_MAX_ENTRIES", 4096)),
		},
		Audit: AuditConfig{
			Path: getStringFromSources(configFile != nil && configFile.Audit.Path != "",
				func() string {
					if configFile == nil {
						return ""
					}
					return configFile.Audit.Path
				}(),
				getEnv("AUDIT_DB_PATH", "")),
			BatchSize: getPositiveIntFromSources(
				func() int {
					if configFile == nil {
						return 0
					}
					return configFile.Audit.BatchSize
				}(),
				parseIntEnv("AUDIT_BATCH_SIZE", 64)),
			FlushIntervalMS: getPositiveIntFromSources(
				func() int {
					if configFile == nil {
						return 0
					}
					return configFile.Audit.FlushIntervalMS
				}(),
				parseIntEnv("AUDIT_FLUSH_INTERVAL_MS", 500)),
		},
		Eval: EvalConfig{
			BatchMaxSize: getPositiveIntFromSources(
				func() int {
					if configFile == nil {
						return 0
					}
					return configFile.Eval.BatchMaxSize
				}(),
				parseIntEnv("EVAL_BATCH_MAX_SIZE", 256)),
			TableMaxRows: getPositiveIntFromSources(
				func() int {
					if configFile == nil {
						return 0
					}
					return configFile.Eval.TableMaxRows
				}(),
				parseIntEnv("EVAL_TABLE_MAX_ROWS", 4096)),
		},
		SnapshotDir: getStringFromSources(configFile != nil && configFile.SnapshotDir != "",
			func() string {
				if configFile == nil {
					return ""
				}
				return configFile.SnapshotDir
			}(),
			getEnv("SNAPSHOT_DIR", "data/state")),
		SnapshotIntervalSec: getPositiveIntFromSources(
			func() int {
				if configFile == nil {
					return 0
				}
				return configFile.SnapshotIntervalSec
			}(),
			parseIntEnv("SNAPSHOT_INTERVAL_SEC", 60)),
		LogLevel: getStringFromSources(configFile != nil && configFile.LogLevel != "",
			func() string {
				if configFile == nil {
					return ""
				}
				return configFile.LogLevel
			}(),
			getEnv("LOG_LEVEL", "info")),
		LogFile: getStringFromSources(configFile != nil && configFile.LogFile != "",
			func() string {
				if configFile == nil {
					return ""
				}
				return configFile.LogFile
			}(),
			getEnv("LOG_FILE", "logs/gostat.log")),
		MetricsListen: getStringFromSources(configFile != nil && configFile.MetricsListen != "",
			func() string {
				if configFile == nil {
					return ""
				}
				return configFile.MetricsListen
			}(),
			getEnv("METRICS_LISTEN", "")),
	}

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	globalConfig = config
	configFilePath = filePath
	return config, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// getStringFromSources 从多个源获取字符串值（优先级：配置文件 > 环境变量/默认值）
func getStringFromSources(hasConfigValue bool, configValue, envValue string) string {
	if hasConfigValue && configValue != "" {
		return configValue
	}
	return envValue
}

// getPositiveIntFromSources 从多个源获取正整数值
// 配置文件中的 0 视为未设置，回落到环境变量/默认值
func getPositiveIntFromSources(configValue, envValue int) int {
	if configValue > 0 {
		return configValue
	}
	return envValue
}

// safeServerString 安全地获取 Server 配置的字符串值
func safeServerString(cf *ConfigFile, getter func(*ConfigFile) string) string {
	if cf == nil {
		return ""
	}
	return getter(cf)
}

// safeServerInt 安全地获取 Server 配置的整数值
func safeServerInt(cf *ConfigFile, getter func(*ConfigFile) int) int {
	if cf == nil {
		return 0
	}
	return getter(cf)
}

// Get 获取全局配置（如果已加载）
func Get() *Config {
	return globalConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("SERVER_LISTEN 未配置")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("服务读写超时必须大于 0")
	}
	if c.Server.AuthEnabled && c.Server.TokenStoreDir == "" {
		return fmt.Errorf("鉴权已启用但 TOKEN_STORE_DIR 为空")
	}
	if c.Server.RatePerSecond < 0 {
		return fmt.Errorf("SERVER_RATE_PER_SECOND 不能为负数")
	}
	if c.Server.RateBurst <= 0 {
		return fmt.Errorf("SERVER_RATE_BURST 必须大于 0")
	}
	if c.Server.WatchQueueSize <= 0 {
		return fmt.Errorf("SERVER_WATCH_QUEUE_SIZE 必须大于 0")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS 不能为负数")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES 必须大于 0")
	}
	if c.Audit.Path != "" {
		if c.Audit.BatchSize <= 0 {
			return fmt.Errorf("AUDIT_BATCH_SIZE 必须大于 0")
		}
		if c.Audit.FlushIntervalMS <= 0 {
			return fmt.Errorf("AUDIT_FLUSH_INTERVAL_MS 必须大于 0")
		}
	}
	if c.Eval.BatchMaxSize <= 0 || c.Eval.BatchMaxSize > 10000 {
		return fmt.Errorf("EVAL_BATCH_MAX_SIZE 必须在 1 到 10000 之间")
	}
	if c.Eval.TableMaxRows <= 0 || c.Eval.TableMaxRows > 100000 {
		return fmt.Errorf("EVAL_TABLE_MAX_ROWS 必须在 1 到 100000 之间")
	}
	if c.SnapshotIntervalSec <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL_SEC 必须大于 0")
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
