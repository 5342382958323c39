// Package service 提供备份目录库的记录与查询服务
// 目录库只做记账，不影响备份内容本身
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/weiwangfds/basebackup/internal/database"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
	"gorm.io/gorm"
)

// CatalogService 备份目录库服务接口
type CatalogService interface {
	// StartRun 创建一次运行记录，返回带 RunID 的运行
	StartRun(baseID, root string) (*database.BackupRun, error)

	// RecordTable 记录单张表的导出结果
	RecordTable(snapshot *database.TableSnapshot) error

	// RecordAttachment 记录一个已下载的附件
	RecordAttachment(file *database.AttachmentFile) error

	// FinishRun 结束运行，runErr 非空时状态为 failed
	FinishRun(runID string, tableCount int, runErr error) error

	// ListRuns 按开始时间倒序列出最近的运行
	ListRuns(limit int) ([]database.BackupRun, error)

	// GetRunTables 获取某次运行的表导出结果
	GetRunTables(runID string) ([]database.TableSnapshot, error)

	// GetRunAttachments 获取某次运行下载的附件
	GetRunAttachments(runID string) ([]database.AttachmentFile, error)
}

// catalogService 基于 gorm 的目录库服务实现
type catalogService struct {
	db *gorm.DB
}

// NewCatalogService 创建目录库服务实例
// 参数:
//   - db: 已完成迁移的数据库连接
func NewCatalogService(db *gorm.DB) CatalogService {
	logger.Debug("[备份目录库] 创建目录库服务实例")
	return &catalogService{db: db}
}

// StartRun 创建一次运行记录
func (s *catalogService) StartRun(baseID, root string) (*database.BackupRun, error) {
	run := &database.BackupRun{
		RunID:     uuid.New().String(),
		BaseID:    baseID,
		Root:      root,
		Status:    database.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(run).Error; err != nil {
		logger.Errorf("[备份目录库] 创建运行记录失败: %v", err)
		return nil, errors.Wrapf(errors.ErrCatalogWrite, err, "create run")
	}
	logger.Infof("[备份目录库] 运行开始, 运行ID: %s", run.RunID)
	return run, nil
}

// RecordTable 记录单张表的导出结果
func (s *catalogService) RecordTable(snapshot *database.TableSnapshot) error {
	if err := s.db.Create(snapshot).Error; err != nil {
		logger.Errorf("[备份目录库] 记录表结果失败, 表: %s, 错误: %v", snapshot.Table, err)
		return errors.Wrapf(errors.ErrCatalogWrite, err, "record table %s", snapshot.Table)
	}
	return nil
}

// RecordAttachment 记录一个已下载的附件
func (s *catalogService) RecordAttachment(file *database.AttachmentFile) error {
	if err := s.db.Create(file).Error; err != nil {
		logger.Errorf("[备份目录库] 记录附件失败, 路径: %s, 错误: %v", file.LocalPath, err)
		return errors.Wrapf(errors.ErrCatalogWrite, err, "record attachment %s", file.LocalPath)
	}
	return nil
}

// FinishRun 结束运行
func (s *catalogService) FinishRun(runID string, tableCount int, runErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      database.StatusSuccess,
		"table_count": tableCount,
		"finished_at": &now,
	}
	if runErr != nil {
		updates["status"] = database.StatusFailed
		updates["error_msg"] = runErr.Error()
	}

	result := s.db.Model(&database.BackupRun{}).Where("run_id = ?", runID).Updates(updates)
	if result.Error != nil {
		logger.Errorf("[备份目录库] 更新运行状态失败, 运行ID: %s, 错误: %v", runID, result.Error)
		return errors.Wrapf(errors.ErrCatalogWrite, result.Error, "finish run %s", runID)
	}
	if result.RowsAffected == 0 {
		return errors.NewWithDetails(errors.ErrCatalogWrite, errors.GetErrorMessage(errors.ErrCatalogWrite),
			"run not found: "+runID)
	}

	logger.Infof("[备份目录库] 运行结束, 运行ID: %s, 状态: %s", runID, updates["status"])
	return nil
}

// ListRuns 按开始时间倒序列出最近的运行
func (s *catalogService) ListRuns(limit int) ([]database.BackupRun, error) {
	var runs []database.BackupRun
	query := s.db.Order("started_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, errors.Wrapf(errors.ErrCatalogConnection, err, "list runs")
	}
	return runs, nil
}

// GetRunTables 获取某次运行的表导出结果，按写入顺序排列
func (s *catalogService) GetRunTables(runID string) ([]database.TableSnapshot, error) {
	var snapshots []database.TableSnapshot
	if err := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&snapshots).Error; err != nil {
		return nil, errors.Wrapf(errors.ErrCatalogConnection, err, "list tables of run %s", runID)
	}
	return snapshots, nil
}

// GetRunAttachments 获取某次运行下载的附件，按写入顺序排列
func (s *catalogService) GetRunAttachments(runID string) ([]database.AttachmentFile, error) {
	var files []database.AttachmentFile
	if err := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&files).Error; err != nil {
		return nil, errors.Wrapf(errors.ErrCatalogConnection, err, "list attachments of run %s", runID)
	}
	return files, nil
}

// nopCatalogService 未配置目录库时使用，只生成运行ID
type nopCatalogService struct{}

// NewNopCatalogService 创建不做持久化的目录库服务
func NewNopCatalogService() CatalogService {
	return nopCatalogService{}
}

func (nopCatalogService) StartRun(baseID, root string) (*database.BackupRun, error) {
	return &database.BackupRun{
		RunID:     uuid.New().String(),
		BaseID:    baseID,
		Root:      root,
		Status:    database.StatusRunning,
		StartedAt: time.Now(),
	}, nil
}

func (nopCatalogService) RecordTable(*database.TableSnapshot) error       { return nil }
func (nopCatalogService) RecordAttachment(*database.AttachmentFile) error { return nil }
func (nopCatalogService) FinishRun(string, int, error) error              { return nil }
func (nopCatalogService) ListRuns(int) ([]database.BackupRun, error)      { return nil, nil }
func (nopCatalogService) GetRunTables(string) ([]database.TableSnapshot, error) {
	return nil, nil
}
func (nopCatalogService) GetRunAttachments(string) ([]database.AttachmentFile, error) {
	return nil, nil
}
