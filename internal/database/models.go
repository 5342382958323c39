// Package database 定义备份目录库的数据模型与初始化逻辑
// 目录库记录每次备份运行、每张表的导出结果以及下载的附件
package database

// 此文件保留作为数据库模型包的入口文件
// 具体的模型定义见：
// - catalog_models.go: 备份运行相关模型（BackupRun, TableSnapshot, AttachmentFile）
// - migrations.go: 表结构迁移与索引
