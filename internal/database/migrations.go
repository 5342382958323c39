package database

import (
	"github.com/weiwangfds/basebackup/internal/logger"
	"gorm.io/gorm"
)

// Migrate 执行备份目录库的表结构迁移
// 参数: db *gorm.DB - GORM数据库连接实例
// 返回值: error - 迁移失败时返回错误信息
func Migrate(db *gorm.DB) error {
	logger.Debug("开始执行备份目录库迁移...")

	err := db.AutoMigrate(
		&BackupRun{},      // 备份运行
		&TableSnapshot{},  // 表导出结果
		&AttachmentFile{}, // 附件下载记录
	)
	if err != nil {
		return err
	}

	if err := createCatalogIndexes(db); err != nil {
		return err
	}

	logger.Debug("备份目录库迁移完成")
	return nil
}

// createCatalogIndexes 创建目录库的复合索引
// 用途: 按运行查询表结果、按记录查询附件历史
func createCatalogIndexes(db *gorm.DB) error {
	indexes := []string{
		// 运行历史按开始时间倒序查询
		"CREATE INDEX IF NOT EXISTS idx_backup_runs_started ON backup_runs(started_at DESC) WHERE deleted_at IS NULL",
		// 同一运行内按表名查询
		"CREATE INDEX IF NOT EXISTS idx_table_snapshots_run_table ON table_snapshots(run_id, table_name)",
		// 某条记录某个字段的附件历史
		"CREATE INDEX IF NOT EXISTS idx_attachment_files_record ON attachment_files(table_name, field_name, record_id)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.Errorf("创建索引失败: %s, 错误: %v", indexSQL, err)
			return err
		}
	}
	return nil
}
