package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/basebackup/internal/errors"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_KEY", "key123")
	t.Setenv("BASE_ID", "appBase")
	t.Setenv("BACKUP_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key123", cfg.Airtable.APIKey)
	assert.Equal(t, "appBase", cfg.Airtable.BaseID)
	assert.Equal(t, "https://api.airtable.com", cfg.Airtable.APIURL)
	assert.Equal(t, 100, cfg.Airtable.PageSize)
	assert.Equal(t, "airtable_backup", cfg.Backup.Root)
	assert.Equal(t, FailurePolicyAbort, cfg.Backup.FailurePolicy)
	assert.Equal(t, CollisionSuffix, cfg.Backup.Collision)
	assert.False(t, cfg.Backup.StrictExit)
	assert.False(t, cfg.Mirror.Enabled())
	assert.Equal(t, "zh-CN", cfg.Language)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_KEY", "key123")
	t.Setenv("BASE_ID", "appBase")
	t.Setenv("BACKUP_DIR", "/tmp/out")
	t.Setenv("BACKUP_FAILURE_POLICY", "continue")
	t.Setenv("BACKUP_STRICT_EXIT", "true")
	t.Setenv("AIRTABLE_PAGE_SIZE", "10")
	t.Setenv("MIRROR_PROVIDER", "aliyun")
	t.Setenv("MIRROR_BUCKET", "backups")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.Backup.Root)
	assert.Equal(t, FailurePolicyContinue, cfg.Backup.FailurePolicy)
	assert.True(t, cfg.Backup.StrictExit)
	assert.Equal(t, 10, cfg.Airtable.PageSize)
	assert.True(t, cfg.Mirror.Enabled())
	assert.Equal(t, "backups", cfg.Mirror.Bucket)
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("BASE_ID", "appBase")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigMissing))
	assert.Contains(t, err.Error(), "Missing API_KEY environment variable")

	t.Setenv("API_KEY", "key123")
	t.Setenv("BASE_ID", "")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing BASE_ID environment variable")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Airtable: AirtableConfig{APIKey: "k", BaseID: "b", PageSize: 100},
			Backup:   BackupConfig{Root: "out", FailurePolicy: FailurePolicyAbort, Collision: CollisionSuffix},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]struct {
		mutate func(*Config)
		code   errors.ErrorCode
	}{
		"未知失败策略":  {func(c *Config) { c.Backup.FailurePolicy = "retry" }, errors.ErrConfigInvalid},
		"未知重名策略":  {func(c *Config) { c.Backup.Collision = "skip" }, errors.ErrConfigInvalid},
		"分页过大":    {func(c *Config) { c.Airtable.PageSize = 101 }, errors.ErrConfigInvalid},
		"分页为零":    {func(c *Config) { c.Airtable.PageSize = 0 }, errors.ErrConfigInvalid},
		"缺少根目录":   {func(c *Config) { c.Backup.Root = "" }, errors.ErrConfigMissing},
		"镜像缺少存储桶": {func(c *Config) { c.Mirror.Provider = "qiniu" }, errors.ErrMirrorConfig},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}
