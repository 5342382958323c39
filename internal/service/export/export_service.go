// Package service 实现单张表的导出
// 先把全部记录写成 CSV，再逐条记录下载附件
package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/weiwangfds/basebackup/internal/airtable"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
	attachmentservice "github.com/weiwangfds/basebackup/internal/service/attachment"
)

// RecordLister 拉取一张表的全部记录
type RecordLister interface {
	ListRecords(ctx context.Context, table string) ([]airtable.Record, error)
}

// AttachmentFetcher 下载记录中某个附件字段的附件
type AttachmentFetcher interface {
	FetchField(ctx context.Context, rec airtable.Record, table, field string) (int, error)
}

// Result 单张表的导出结果
type Result struct {
	Table           string
	CSVPath         string
	RecordCount     int
	AttachmentCount int
}

// Service 表导出服务
type Service struct {
	lister  RecordLister
	fetcher AttachmentFetcher
	root    string
}

// NewExportService 创建表导出服务
// 参数:
//   - lister: 记录来源
//   - fetcher: 附件下载器
//   - root: 备份根目录
func NewExportService(lister RecordLister, fetcher AttachmentFetcher, root string) *Service {
	return &Service{lister: lister, fetcher: fetcher, root: root}
}

// CSVPath 表对应的 CSV 文件路径
func (s *Service) CSVPath(table string) string {
	return filepath.Join(s.root, attachmentservice.PathSegment(table)+".csv")
}

// ExportTable 导出一张表
// 错误直接返回，不在表内部吞掉；返回的 Result 总是非空，包含出错前已完成的部分
func (s *Service) ExportTable(ctx context.Context, table string) (*Result, error) {
	res := &Result{Table: table, CSVPath: s.CSVPath(table)}

	records, err := s.lister.ListRecords(ctx, table)
	if err != nil {
		return res, err
	}
	res.RecordCount = len(records)

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return res, errors.Wrapf(errors.ErrDirectoryCreate, err, "mkdir %s", s.root)
	}

	rows := BuildRows(records)
	if len(rows) == 0 {
		logger.Warnf("[表导出] 表 %s 没有记录，写入空文件", table)
	}
	if err := WriteCSV(res.CSVPath, rows); err != nil {
		return res, err
	}
	logger.Infof("[表导出] 已写入 %s, 共 %d 条记录", res.CSVPath, len(rows))

	for _, rec := range records {
		for _, f := range rec.Fields {
			if f.Kind() != airtable.AttachmentList {
				continue
			}
			n, err := s.fetcher.FetchField(ctx, rec, table, f.Name)
			res.AttachmentCount += n
			if err != nil {
				return res, err
			}
		}
	}

	return res, nil
}
