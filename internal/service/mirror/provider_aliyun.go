package service

import (
	"context"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// AliyunOSSProvider 阿里云OSS提供商实现
type AliyunOSSProvider struct {
	client *oss.Client
	bucket *oss.Bucket
	name   string
}

// NewAliyunOSSProvider 创建阿里云OSS提供商实例
// 未配置 Endpoint 时使用区域默认域名
// 参数:
//   - cfg: 镜像配置，包含访问密钥、区域、存储桶等
//
// 返回:
//   - *AliyunOSSProvider: 提供商实例
//   - error: 创建客户端或获取存储桶失败
func NewAliyunOSSProvider(cfg config.MirrorConfig) (*AliyunOSSProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
	}
	logger.Infof("[阿里云OSS] 初始化提供商实例, 域名: %s, 存储桶: %s", endpoint, cfg.Bucket)

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		logger.Errorf("[阿里云OSS] 创建客户端失败, 错误: %v", err)
		return nil, errors.Wrapf(errors.ErrMirrorConfig, err, "create aliyun oss client")
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		logger.Errorf("[阿里云OSS] 连接存储桶失败, 存储桶: %s, 错误: %v", cfg.Bucket, err)
		return nil, errors.Wrapf(errors.ErrMirrorConfig, err, "get bucket %s", cfg.Bucket)
	}

	return &AliyunOSSProvider{client: client, bucket: bucket, name: cfg.Bucket}, nil
}

// UploadFile 上传文件到阿里云OSS
func (p *AliyunOSSProvider) UploadFile(_ context.Context, objectKey string, reader io.Reader, contentType string) error {
	var options []oss.Option
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}

	if err := p.bucket.PutObject(objectKey, reader, options...); err != nil {
		logger.Errorf("[阿里云OSS] 上传文件失败, 对象键: %s, 错误: %v", objectKey, err)
		return errors.Wrapf(errors.ErrMirrorUpload, err, "aliyun put %s", objectKey)
	}
	logger.Debugf("[阿里云OSS] 成功上传文件: %s", objectKey)
	return nil
}

// TestConnection 通过获取存储桶信息验证连接
func (p *AliyunOSSProvider) TestConnection(_ context.Context) error {
	info, err := p.client.GetBucketInfo(p.name)
	if err != nil {
		logger.Errorf("[阿里云OSS] 连接测试失败, 存储桶: %s, 错误: %v", p.name, err)
		return errors.Wrapf(errors.ErrMirrorConnection, err, "aliyun bucket %s", p.name)
	}
	logger.Infof("[阿里云OSS] 连接测试成功, 存储桶: %s, 位置: %s", p.name, info.BucketInfo.Location)
	return nil
}
