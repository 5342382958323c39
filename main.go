// basebackup 把一个 Airtable base 的全部表备份到本地目录
// 每张表写成 <BACKUP_DIR>/<表名>.csv，附件按 <表名>.<字段名>/<记录名>/<文件名> 存放
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/airtable"
	"github.com/weiwangfds/basebackup/internal/database"
	"github.com/weiwangfds/basebackup/internal/i18n"
	"github.com/weiwangfds/basebackup/internal/logger"
	attachmentservice "github.com/weiwangfds/basebackup/internal/service/attachment"
	backupservice "github.com/weiwangfds/basebackup/internal/service/backup"
	catalogservice "github.com/weiwangfds/basebackup/internal/service/catalog"
	exportservice "github.com/weiwangfds/basebackup/internal/service/export"
	mirrorservice "github.com/weiwangfds/basebackup/internal/service/mirror"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("加载配置失败: %v", err)
		return 1
	}

	if err := logger.Init(&cfg.Log); err != nil {
		logger.Errorf("初始化日志失败: %v", err)
		return 1
	}
	i18n.GetInstance().SetDefaultLanguage(cfg.Language)

	// 初始化目录库（可选）
	catalog := catalogservice.NewNopCatalogService()
	if cfg.Catalog.DSN != "" {
		db, err := database.Init(cfg.Catalog)
		if err != nil {
			logger.Warnf("初始化备份目录库失败，本次运行不做记录: %v", err)
		} else {
			catalog = catalogservice.NewCatalogService(db)
		}
	}

	// 中断信号转为 context 取消
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := airtable.NewClient(cfg.Airtable)
	fetcher := attachmentservice.NewFetcher(client, cfg.Backup.Root, cfg.Backup.Collision)
	exporter := exportservice.NewExportService(client, fetcher, cfg.Backup.Root)
	backup := backupservice.NewBackupService(client, exporter, catalog, client.BaseID(), cfg.Backup)
	fetcher.SetListener(backup)

	logger.Infof("开始备份 base %s 到 %s", client.BaseID(), cfg.Backup.Root)
	report := backup.Run(ctx)

	if cfg.Mirror.Enabled() {
		if report.Failed() {
			logger.Warn("备份存在失败，跳过镜像上传")
		} else if err := mirror(ctx, cfg.Mirror, cfg.Backup.Root); err != nil {
			logger.Errorf("镜像上传失败: %v", err)
		}
	}

	if report.Failed() && cfg.Backup.StrictExit {
		return 1
	}
	return 0
}

func mirror(ctx context.Context, cfg config.MirrorConfig, root string) error {
	factory := &mirrorservice.ProviderFactory{}
	provider, err := factory.CreateProvider(cfg)
	if err != nil {
		return err
	}
	_, err = mirrorservice.NewMirrorService(provider, cfg.Prefix).MirrorDirectory(ctx, root)
	return err
}
