// Package config 负责加载备份程序的运行配置
// 配置来源依次为：默认值、config.yaml 配置文件、环境变量
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// 失败处理策略
const (
	// FailurePolicyAbort 首个失败的表终止整个备份
	FailurePolicyAbort = "abort"
	// FailurePolicyContinue 记录失败后继续备份后续的表
	FailurePolicyContinue = "continue"
)

// 附件重名处理策略
const (
	// CollisionOverwrite 同名附件后写覆盖先写
	CollisionOverwrite = "overwrite"
	// CollisionSuffix 同名附件追加 " (n)" 后缀
	CollisionSuffix = "suffix"
)

// Config 程序总配置
type Config struct {
	Airtable AirtableConfig `mapstructure:"airtable"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Log      logger.Config  `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	// Language 错误信息语言，zh-CN 或 en-US
	Language string `mapstructure:"language"`
}

// AirtableConfig 远程数据源配置
type AirtableConfig struct {
	APIKey      string `mapstructure:"api_key"`      // 访问令牌，来自环境变量 API_KEY
	BaseID      string `mapstructure:"base_id"`      // 备份目标 base，来自环境变量 BASE_ID
	APIURL      string `mapstructure:"api_url"`      // 接口根地址
	PageSize    int    `mapstructure:"page_size"`    // 记录分页大小
	Timeout     int    `mapstructure:"timeout"`      // 请求超时（秒），0 表示不设置
	EnableHTTP2 bool   `mapstructure:"enable_http2"` // 是否为传输层配置 HTTP/2
}

// BackupConfig 备份行为配置
type BackupConfig struct {
	Root          string `mapstructure:"root"`           // 备份根目录
	FailurePolicy string `mapstructure:"failure_policy"` // abort 或 continue
	StrictExit    bool   `mapstructure:"strict_exit"`    // 存在失败时以非零状态退出
	Collision     string `mapstructure:"collision"`      // overwrite 或 suffix
}

// CatalogConfig 备份目录库配置，DSN 为空时不记录
type CatalogConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MirrorConfig 异地镜像配置，Provider 为空时不上传
type MirrorConfig struct {
	Provider  string `mapstructure:"provider"` // aliyun、tencent、qiniu
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"` // 对象键前缀
}

// Enabled 是否配置了镜像
func (m MirrorConfig) Enabled() bool {
	return m.Provider != ""
}

// Load 加载配置
// 返回:
//   - *Config: 合并后的配置
//   - error: 配置文件解析失败或必填项缺失
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 这三项使用不带前缀的环境变量名
	bindings := map[string]string{
		"airtable.api_key": "API_KEY",
		"airtable.base_id": "BASE_ID",
		"backup.root":      "BACKUP_DIR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrap(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid), err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("airtable.api_url", "https://api.airtable.com")
	v.SetDefault("airtable.page_size", 100)
	v.SetDefault("airtable.timeout", 0)
	v.SetDefault("airtable.enable_http2", true)

	v.SetDefault("backup.root", "airtable_backup")
	v.SetDefault("backup.failure_policy", FailurePolicyAbort)
	v.SetDefault("backup.strict_exit", false)
	v.SetDefault("backup.collision", CollisionSuffix)

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
	v.SetDefault("log.file_path", def.FilePath)

	v.SetDefault("catalog.dsn", "")
	// 镜像配置项都需要默认值，AutomaticEnv 才能在 Unmarshal 时生效
	for _, key := range []string{"provider", "region", "bucket", "access_key", "secret_key", "endpoint"} {
		v.SetDefault("mirror."+key, "")
	}
	v.SetDefault("mirror.prefix", "airtable_backup")
	v.SetDefault("language", "zh-CN")
}

// Validate 校验必填项和枚举值
func (c *Config) Validate() error {
	if c.Airtable.APIKey == "" {
		return errors.NewWithDetails(errors.ErrConfigMissing, errors.GetErrorMessage(errors.ErrConfigMissing), "Missing API_KEY environment variable")
	}
	if c.Airtable.BaseID == "" {
		return errors.NewWithDetails(errors.ErrConfigMissing, errors.GetErrorMessage(errors.ErrConfigMissing), "Missing BASE_ID environment variable")
	}
	if c.Backup.Root == "" {
		return errors.NewWithDetails(errors.ErrConfigMissing, errors.GetErrorMessage(errors.ErrConfigMissing), "backup.root is empty")
	}

	switch c.Backup.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyContinue:
	default:
		return errors.NewWithDetails(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid),
			fmt.Sprintf("unknown backup.failure_policy %q", c.Backup.FailurePolicy))
	}

	switch c.Backup.Collision {
	case CollisionOverwrite, CollisionSuffix:
	default:
		return errors.NewWithDetails(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid),
			fmt.Sprintf("unknown backup.collision %q", c.Backup.Collision))
	}

	if c.Airtable.PageSize <= 0 || c.Airtable.PageSize > 100 {
		return errors.NewWithDetails(errors.ErrConfigInvalid, errors.GetErrorMessage(errors.ErrConfigInvalid),
			fmt.Sprintf("airtable.page_size must be within 1..100, got %d", c.Airtable.PageSize))
	}

	if c.Mirror.Enabled() && c.Mirror.Bucket == "" {
		return errors.NewWithDetails(errors.ErrMirrorConfig, errors.GetErrorMessage(errors.ErrMirrorConfig), "mirror.bucket is empty")
	}
	return nil
}
