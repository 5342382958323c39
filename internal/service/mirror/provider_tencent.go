package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// TencentCOSProvider 腾讯云COS提供商实现
type TencentCOSProvider struct {
	client *cos.Client
	bucket string
}

// NewTencentCOSProvider 创建腾讯云COS提供商实例
func NewTencentCOSProvider(cfg config.MirrorConfig) (*TencentCOSProvider, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		bucketURL = cfg.Endpoint
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMirrorConfig, err, "parse bucket url %s", bucketURL)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	})

	logger.Infof("[腾讯云COS] 初始化提供商实例, 地址: %s", bucketURL)
	return &TencentCOSProvider{client: client, bucket: cfg.Bucket}, nil
}

// UploadFile 上传文件到腾讯云COS
func (p *TencentCOSProvider) UploadFile(ctx context.Context, objectKey string, reader io.Reader, contentType string) error {
	options := &cos.ObjectPutOptions{}
	if contentType != "" {
		options.ObjectPutHeaderOptions = &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		}
	}

	if _, err := p.client.Object.Put(ctx, objectKey, reader, options); err != nil {
		logger.Errorf("[腾讯云COS] 上传文件失败, 对象键: %s, 错误: %v", objectKey, err)
		return errors.Wrapf(errors.ErrMirrorUpload, err, "cos put %s", objectKey)
	}
	return nil
}

// TestConnection 测试连接
func (p *TencentCOSProvider) TestConnection(ctx context.Context) error {
	if _, err := p.client.Bucket.Head(ctx); err != nil {
		logger.Errorf("[腾讯云COS] 连接测试失败, 存储桶: %s, 错误: %v", p.bucket, err)
		return errors.Wrapf(errors.ErrMirrorConnection, err, "cos bucket %s", p.bucket)
	}
	return nil
}
