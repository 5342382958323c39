package service

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// Result 一次镜像的结果
type Result struct {
	Uploaded int
	Bytes    int64
}

// Service 备份目录镜像服务
type Service struct {
	provider Provider
	prefix   string
}

// NewMirrorService 创建镜像服务
// 参数:
//   - provider: 对象存储提供商
//   - prefix: 对象键前缀，可为空
func NewMirrorService(provider Provider, prefix string) *Service {
	return &Service{provider: provider, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey 本地相对路径对应的对象键
func (s *Service) ObjectKey(rel string) string {
	return path.Join(s.prefix, filepath.ToSlash(rel))
}

// MirrorDirectory 上传 root 下的全部文件
// 先测试连接；任一文件上传失败即停止，本地文件不受影响
func (s *Service) MirrorDirectory(ctx context.Context, root string) (*Result, error) {
	if err := s.provider.TestConnection(ctx); err != nil {
		return nil, err
	}

	res := &Result{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(errors.ErrFileRead, err, "walk %s", p)
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errors.Wrapf(errors.ErrFileRead, err, "rel %s", p)
		}
		size, err := s.uploadFile(ctx, p, s.ObjectKey(rel))
		if err != nil {
			return err
		}
		res.Uploaded++
		res.Bytes += size
		return nil
	})
	if err != nil {
		logger.Errorf("[镜像服务] 镜像失败: %v", err)
		return res, err
	}

	logger.Infof("[镜像服务] 镜像完成, 上传 %d 个文件, 共 %d 字节", res.Uploaded, res.Bytes)
	return res, nil
}

func (s *Service) uploadFile(ctx context.Context, localPath, key string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrFileRead, err, "open %s", localPath)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, errors.Wrapf(errors.ErrFileRead, err, "stat %s", localPath)
	}

	if err := s.provider.UploadFile(ctx, key, file, contentType(localPath)); err != nil {
		return 0, err
	}
	logger.Debugf("[镜像服务] 已上传: %s -> %s", localPath, key)
	return info.Size(), nil
}

// contentType 按扩展名推断内容类型
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
