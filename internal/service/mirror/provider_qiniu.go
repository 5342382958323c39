package service

import (
	"context"
	"fmt"
	"io"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// QiniuKodoProvider 七牛云Kodo提供商实现
type QiniuKodoProvider struct {
	mac        *qbox.Mac
	bucketName string
	region     *storage.Region
}

// NewQiniuKodoProvider 创建七牛云Kodo提供商实例
// 区域信息按存储桶自动查询
func NewQiniuKodoProvider(cfg config.MirrorConfig) (*QiniuKodoProvider, error) {
	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)

	region, err := storage.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		logger.Errorf("[七牛云Kodo] 获取区域失败: 存储桶=%s, 错误=%v", cfg.Bucket, err)
		return nil, errors.Wrapf(errors.ErrMirrorConfig, err, "qiniu region of %s", cfg.Bucket)
	}

	logger.Infof("[七牛云Kodo] 初始化提供商实例: 存储桶=%s, 区域=%s", cfg.Bucket, region.RsHost)
	return &QiniuKodoProvider{mac: mac, bucketName: cfg.Bucket, region: region}, nil
}

// UploadFile 上传文件到七牛云Kodo
// 上传策略限定为单个对象键，已存在的对象会被覆盖
func (p *QiniuKodoProvider) UploadFile(ctx context.Context, objectKey string, reader io.Reader, contentType string) error {
	putPolicy := storage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	formUploader := storage.NewFormUploader(&storage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	})

	putExtra := storage.PutExtra{}
	if contentType != "" {
		putExtra.MimeType = contentType
	}

	ret := storage.PutRet{}
	if err := formUploader.Put(ctx, &ret, upToken, objectKey, reader, -1, &putExtra); err != nil {
		logger.Errorf("[七牛云Kodo] 文件上传失败: 对象键=%s, 错误=%v", objectKey, err)
		return errors.Wrapf(errors.ErrMirrorUpload, err, "qiniu put %s", objectKey)
	}
	logger.Debugf("[七牛云Kodo] 文件上传成功: 对象键=%s, 哈希值=%s", objectKey, ret.Hash)
	return nil
}

// TestConnection 尝试列出一个对象来验证连接和认证
func (p *QiniuKodoProvider) TestConnection(_ context.Context) error {
	bucketManager := storage.NewBucketManager(p.mac, &storage.Config{Region: p.region})
	if _, _, _, _, err := bucketManager.ListFiles(p.bucketName, "", "", "", 1); err != nil {
		logger.Errorf("[七牛云Kodo] 连接测试失败: 存储桶=%s, 错误=%v", p.bucketName, err)
		return errors.Wrapf(errors.ErrMirrorConnection, err, "qiniu bucket %s", p.bucketName)
	}
	return nil
}
