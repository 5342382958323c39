// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和翻译功能
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success": "成功",

			"config_missing": "缺少必要配置",
			"config_invalid": "配置无效",

			"remote_query":        "远程查询失败",
			"remote_response":     "远程响应格式错误",
			"attachment_download": "附件下载失败",

			"directory_create": "目录创建失败",
			"file_write":       "文件写入失败",
			"file_read":        "文件读取失败",

			"mirror_config":                 "镜像配置无效",
			"mirror_connection":             "镜像存储连接失败",
			"mirror_upload":                 "镜像上传失败",
			"mirror_provider_not_supported": "镜像存储提供商不支持",

			"catalog_connection": "备份目录库连接失败",
			"catalog_write":      "备份目录库写入失败",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success": "Success",

			"config_missing": "Missing Required Configuration",
			"config_invalid": "Invalid Configuration",

			"remote_query":        "Remote Query Failed",
			"remote_response":     "Malformed Remote Response",
			"attachment_download": "Attachment Download Failed",

			"directory_create": "Directory Create Failed",
			"file_write":       "File Write Failed",
			"file_read":        "File Read Failed",

			"mirror_config":                 "Mirror Config Invalid",
			"mirror_connection":             "Mirror Connection Failed",
			"mirror_upload":                 "Mirror Upload Failed",
			"mirror_provider_not_supported": "Mirror Provider Not Supported",

			"catalog_connection": "Catalog Connection Failed",
			"catalog_write":      "Catalog Write Failed",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	// 创建通用翻译器
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, enUS, zhCN)

	// 注册支持的语言 - 使用locale库的标识符
	langMappings := map[string]string{
		LangZhCN: "zh",    // 中文使用 "zh"
		LangEnUS: "en_US", // 英文使用 "en_US"
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		// 将语言包注册到翻译器
		for key, text := range translations[ourLang] {
			if err := trans.Add(key, text, false); err != nil {
				logger.Errorf("注册翻译失败: 语言=%s, 键=%s, 错误=%v", ourLang, key, err)
			}
		}
		i.translators[ourLang] = trans
		logger.Debugf("成功初始化翻译器: %s -> %s", ourLang, localeLang)
	}

	logger.Debug("国际化翻译器初始化完成")
}

// Translate 根据键和语言获取翻译
// 语言不受支持时使用默认语言，当前语言缺少该键时回退到默认语言
func (i *I18n) Translate(key, lang string) string {
	trans, exists := i.translators[lang]
	if !exists {
		trans, exists = i.translators[i.defaultLang]
		if !exists {
			logger.Warnf("未找到翻译器，使用默认文本: %s", key)
			return key
		}
	}

	if text, err := trans.T(key); err == nil {
		return text
	}

	if def, ok := i.translators[i.defaultLang]; ok && def != trans {
		if text, err := def.T(key); err == nil {
			return text
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言，不支持的语言将被忽略
func (i *I18n) SetDefaultLanguage(lang string) {
	if !i.IsSupportedLanguage(lang) {
		logger.Warnf("不支持的语言 '%s'，保持默认语言 '%s'", lang, i.defaultLang)
		return
	}
	i.defaultLang = lang
	logger.Debugf("设置默认语言为: %s", lang)
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}
