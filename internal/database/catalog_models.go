package database

import (
	"time"

	"gorm.io/gorm"
)

// 运行与表的状态取值
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// BackupRun 一次备份运行
// 每次程序执行生成一条记录，RunID 为 UUID
type BackupRun struct {
	ID         uint           `gorm:"primarykey" json:"id"`                       // 主键ID，自增
	RunID      string         `gorm:"uniqueIndex;not null;size:36" json:"run_id"` // 运行唯一标识（UUID格式）
	BaseID     string         `gorm:"not null;size:64" json:"base_id"`            // 备份的 base
	Root       string         `gorm:"not null;size:500" json:"root"`              // 备份根目录
	Status     string         `gorm:"not null;size:20" json:"status"`             // running、success、failed
	TableCount int            `gorm:"default:0" json:"table_count"`               // 已处理的表数量
	ErrorMsg   string         `gorm:"type:text" json:"error_msg"`                 // 首个错误
	StartedAt  time.Time      `json:"started_at"`                                 // 开始时间
	FinishedAt *time.Time     `json:"finished_at"`                                // 结束时间，运行中为空
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定BackupRun模型对应的数据库表名
func (BackupRun) TableName() string {
	return "backup_runs"
}

// TableSnapshot 单张表在一次运行中的导出结果
type TableSnapshot struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	RunID           string    `gorm:"not null;size:36;index" json:"run_id"`                  // 所属运行
	Table           string    `gorm:"column:table_name;not null;size:255" json:"table_name"` // 远程表名
	RecordCount     int       `gorm:"default:0" json:"record_count"`                         // 导出的记录数
	AttachmentCount int       `gorm:"default:0" json:"attachment_count"`                     // 下载的附件数
	CSVPath         string    `gorm:"size:500" json:"csv_path"`                              // 导出文件路径
	Status          string    `gorm:"not null;size:20" json:"status"`                        // success、failed
	ErrorMsg        string    `gorm:"type:text" json:"error_msg"`                            // 失败原因
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定TableSnapshot模型对应的数据库表名
func (TableSnapshot) TableName() string {
	return "table_snapshots"
}

// AttachmentFile 一次运行中下载到本地的附件
type AttachmentFile struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	RunID     string    `gorm:"not null;size:36;index" json:"run_id"`                  // 所属运行
	Table     string    `gorm:"column:table_name;not null;size:255" json:"table_name"` // 远程表名
	Field     string    `gorm:"column:field_name;not null;size:255" json:"field_name"` // 附件字段名
	RecordID  string    `gorm:"not null;size:64" json:"record_id"`                     // 记录ID
	URL       string    `gorm:"size:2048" json:"url"`                                  // 附件来源地址
	LocalPath string    `gorm:"not null;size:1024" json:"local_path"`                  // 本地保存路径
	FileSize  int64     `json:"file_size"`                                             // 文件大小，单位为字节
	FileHash  string    `gorm:"size:64" json:"file_hash"`                              // 文件内容的SHA256哈希值
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定AttachmentFile模型对应的数据库表名
func (AttachmentFile) TableName() string {
	return "attachment_files"
}
