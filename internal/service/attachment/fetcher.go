// Package service 负责把记录中的附件下载到备份目录
// 目录结构为 <根目录>/<表名>.<字段名>/<记录显示名>/<文件名>
package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/airtable"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// Opener 打开附件内容流
type Opener interface {
	OpenAttachment(ctx context.Context, url string) (io.ReadCloser, error)
}

// Downloaded 一个已写入磁盘的附件
type Downloaded struct {
	Table     string
	Field     string
	RecordID  string
	URL       string
	LocalPath string
	Size      int64
	SHA256    string
}

// Listener 接收附件下载完成的通知
type Listener interface {
	AttachmentDownloaded(d Downloaded)
}

// Fetcher 附件下载器
type Fetcher struct {
	opener    Opener
	root      string
	collision string
	listener  Listener
}

// NewFetcher 创建附件下载器
// 参数:
//   - opener: 附件内容来源
//   - root: 备份根目录
//   - collision: 同名附件处理策略，overwrite 或 suffix
func NewFetcher(opener Opener, root, collision string) *Fetcher {
	if collision == "" {
		collision = config.CollisionSuffix
	}
	return &Fetcher{opener: opener, root: root, collision: collision}
}

// SetListener 设置下载完成通知的接收者
func (f *Fetcher) SetListener(l Listener) {
	f.listener = l
}

// FetchField 下载记录某个附件字段中的全部附件
// 字段不存在或不是附件列表时不做任何事；附件按列表顺序逐个下载，
// 任一附件失败即停止并返回错误
// 返回:
//   - int: 已下载的附件数
//   - error: 创建目录、下载或写入失败
func (f *Fetcher) FetchField(ctx context.Context, rec airtable.Record, table, field string) (int, error) {
	value, ok := rec.Get(field)
	if !ok || airtable.Classify(value) != airtable.AttachmentList {
		return 0, nil
	}

	dir := FieldDir(f.root, table, field, rec.DisplayName())
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Errorf("[附件下载] 创建目录失败: %s, 错误: %v", dir, err)
		return 0, errors.Wrapf(errors.ErrDirectoryCreate, err, "mkdir %s", dir)
	}

	used := make(map[string]bool)
	count := 0
	for i, att := range airtable.Attachments(value) {
		if att.URL == "" {
			return count, errors.NewWithDetails(errors.ErrAttachmentDownload, errors.GetErrorMessage(errors.ErrAttachmentDownload),
				fmt.Sprintf("record %s field %q: element %d has no url", rec.ID, field, i))
		}

		name := SafeFilename(att)
		if f.collision == config.CollisionSuffix {
			name = uniqueName(name, used)
		}
		used[name] = true

		target := filepath.Join(dir, name)
		size, sum, err := f.download(ctx, att.URL, target)
		if err != nil {
			logger.Errorf("[附件下载] 下载失败: %s, 错误: %v", target, err)
			return count, err
		}
		count++
		logger.Infof("[附件下载] 已下载: %s", target)

		if f.listener != nil {
			f.listener.AttachmentDownloaded(Downloaded{
				Table:     table,
				Field:     field,
				RecordID:  rec.ID,
				URL:       att.URL,
				LocalPath: target,
				Size:      size,
				SHA256:    sum,
			})
		}
	}
	return count, nil
}

// download 流式写入临时文件，完成后替换目标文件
func (f *Fetcher) download(ctx context.Context, url, target string) (int64, string, error) {
	body, err := f.opener.OpenAttachment(ctx, url)
	if err != nil {
		return 0, "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return 0, "", errors.Wrapf(errors.ErrFileWrite, err, "create temp file for %s", target)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), body)
	if err != nil {
		tmp.Close()
		return 0, "", errors.Wrapf(errors.ErrAttachmentDownload, err, "copy %s", url)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", errors.Wrapf(errors.ErrFileWrite, err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, "", errors.Wrapf(errors.ErrFileWrite, err, "rename to %s", target)
	}

	return size, fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// FieldDir 附件字段在某条记录下的目录
func FieldDir(root, table, field, displayName string) string {
	return filepath.Join(root, PathSegment(table)+"."+PathSegment(field), airtable.SanitizeName(displayName))
}

// PathSegment 替换名称中的路径分隔符，使其只占一级目录
func PathSegment(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// SafeFilename 附件在本地使用的文件名
// 只保留基本名；为空或为 "."、".." 时依次退回附件ID和 "attachment"
func SafeFilename(att airtable.Attachment) string {
	name := att.Filename[strings.LastIndexAny(att.Filename, "/\\")+1:]
	if name != "" && name != "." && name != ".." {
		return name
	}
	if id := PathSegment(att.ID); id != "" && id != "." && id != ".." {
		return id
	}
	return "attachment"
}

// uniqueName 为重名文件追加 " (n)" 后缀，n 从 1 开始
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !used[candidate] {
			return candidate
		}
	}
}
