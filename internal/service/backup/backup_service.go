// Package service 编排一次完整的备份运行
// 列出全部表后按顺序逐张导出，并按失败策略决定是否继续
package service

import (
	"context"
	"time"

	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/database"
	"github.com/weiwangfds/basebackup/internal/logger"
	attachmentservice "github.com/weiwangfds/basebackup/internal/service/attachment"
	catalogservice "github.com/weiwangfds/basebackup/internal/service/catalog"
	exportservice "github.com/weiwangfds/basebackup/internal/service/export"
)

// TableLister 列出 base 中的表
type TableLister interface {
	ListTableNames(ctx context.Context) ([]string, error)
}

// TableExporter 导出单张表
type TableExporter interface {
	ExportTable(ctx context.Context, table string) (*exportservice.Result, error)
}

// TableReport 单张表的备份结果
type TableReport struct {
	Table       string
	CSVPath     string
	Records     int
	Attachments int
	Err         error
}

// Report 一次运行的结果
type Report struct {
	RunID      string
	Tables     []TableReport
	Err        error // 首个错误
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed 运行中是否出现过错误
func (r *Report) Failed() bool {
	return r.Err != nil
}

// Service 备份编排服务
type Service struct {
	tables   TableLister
	exporter TableExporter
	catalog  catalogservice.CatalogService
	baseID   string
	root     string
	policy   string

	runID string
}

// NewBackupService 创建备份编排服务
// 参数:
//   - tables: 表名来源
//   - exporter: 表导出服务
//   - catalog: 目录库服务，为 nil 时不记录
//   - baseID: 备份的 base
//   - cfg: 备份行为配置
func NewBackupService(tables TableLister, exporter TableExporter, catalog catalogservice.CatalogService,
	baseID string, cfg config.BackupConfig) *Service {
	if catalog == nil {
		catalog = catalogservice.NewNopCatalogService()
	}
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = config.FailurePolicyAbort
	}
	return &Service{
		tables:   tables,
		exporter: exporter,
		catalog:  catalog,
		baseID:   baseID,
		root:     cfg.Root,
		policy:   policy,
	}
}

// Run 执行一次备份
// 错误只记录日志并写入报告，不向上抛出
func (s *Service) Run(ctx context.Context) *Report {
	report := &Report{StartedAt: time.Now()}

	run, err := s.catalog.StartRun(s.baseID, s.root)
	if err != nil {
		logger.Warnf("[备份服务] 目录库不可用，本次运行不做记录: %v", err)
		s.catalog = catalogservice.NewNopCatalogService()
		run, _ = s.catalog.StartRun(s.baseID, s.root)
	}
	s.runID = run.RunID
	report.RunID = run.RunID

	s.backupAll(ctx, report)

	report.FinishedAt = time.Now()
	if err := s.catalog.FinishRun(report.RunID, len(report.Tables), report.Err); err != nil {
		logger.Warnf("[备份服务] 更新运行记录失败: %v", err)
	}

	if report.Failed() {
		logger.Errorf("[备份服务] 备份过程中出错: %v", report.Err)
	} else {
		logger.Infof("[备份服务] 备份成功完成, 共 %d 张表, 耗时 %v",
			len(report.Tables), report.FinishedAt.Sub(report.StartedAt))
	}
	return report
}

func (s *Service) backupAll(ctx context.Context, report *Report) {
	names, err := s.tables.ListTableNames(ctx)
	if err != nil {
		report.Err = err
		return
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			report.Err = firstError(report.Err, err)
			return
		}

		logger.Infof("[备份服务] 正在备份表: %s", name)
		tr := s.backupTable(ctx, name)
		report.Tables = append(report.Tables, tr)

		if tr.Err != nil {
			report.Err = firstError(report.Err, tr.Err)
			if s.policy == config.FailurePolicyAbort {
				return
			}
			logger.Warnf("[备份服务] 表 %s 备份失败，继续后续的表: %v", name, tr.Err)
		}
	}
}

func (s *Service) backupTable(ctx context.Context, name string) TableReport {
	res, err := s.exporter.ExportTable(ctx, name)
	tr := TableReport{Table: name, Err: err}
	if res != nil {
		tr.CSVPath = res.CSVPath
		tr.Records = res.RecordCount
		tr.Attachments = res.AttachmentCount
	}

	snapshot := &database.TableSnapshot{
		RunID:           s.runID,
		Table:           name,
		RecordCount:     tr.Records,
		AttachmentCount: tr.Attachments,
		CSVPath:         tr.CSVPath,
		Status:          database.StatusSuccess,
	}
	if err != nil {
		snapshot.Status = database.StatusFailed
		snapshot.ErrorMsg = err.Error()
	}
	if err := s.catalog.RecordTable(snapshot); err != nil {
		logger.Warnf("[备份服务] 记录表结果失败: %v", err)
	}
	return tr
}

// AttachmentDownloaded 把下载完成的附件写入目录库
func (s *Service) AttachmentDownloaded(d attachmentservice.Downloaded) {
	err := s.catalog.RecordAttachment(&database.AttachmentFile{
		RunID:     s.runID,
		Table:     d.Table,
		Field:     d.Field,
		RecordID:  d.RecordID,
		URL:       d.URL,
		LocalPath: d.LocalPath,
		FileSize:  d.Size,
		FileHash:  d.SHA256,
	})
	if err != nil {
		logger.Warnf("[备份服务] 记录附件失败: %v", err)
	}
}

func firstError(current, next error) error {
	if current != nil {
		return current
	}
	return next
}
