// Package service 把本地备份目录镜像到对象存储
// 支持阿里云OSS、腾讯云COS和七牛云Kodo
package service

import (
	"context"
	"io"

	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
)

// 支持的对象存储提供商
const (
	ProviderAliyun  = "aliyun"
	ProviderTencent = "tencent"
	ProviderQiniu   = "qiniu"
)

// Provider 对象存储提供商接口
type Provider interface {
	// UploadFile 上传对象，已存在时覆盖
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, contentType string) error

	// TestConnection 测试存储桶是否可访问
	TestConnection(ctx context.Context) error
}

// ProviderFactory 对象存储提供商工厂
type ProviderFactory struct{}

// CreateProvider 根据配置创建提供商实例
func (f *ProviderFactory) CreateProvider(cfg config.MirrorConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderAliyun:
		return NewAliyunOSSProvider(cfg)
	case ProviderTencent:
		return NewTencentCOSProvider(cfg)
	case ProviderQiniu:
		return NewQiniuKodoProvider(cfg)
	default:
		return nil, errors.NewWithDetails(errors.ErrMirrorProviderNotSupported,
			errors.GetErrorMessage(errors.ErrMirrorProviderNotSupported), "provider: "+cfg.Provider)
	}
}
