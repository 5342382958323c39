// Package errors 定义备份程序统一的错误类型和错误码
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/weiwangfds/basebackup/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	ErrSuccess ErrorCode = 0 // 成功

	// 配置相关错误码 (1000-1999)
	ErrConfigMissing ErrorCode = 1000 // 缺少必要配置
	ErrConfigInvalid ErrorCode = 1001 // 配置无效

	// 远程接口相关错误码 (2000-2999)
	ErrRemoteQuery        ErrorCode = 2000 // 远程查询失败（网络错误或非成功状态码）
	ErrRemoteResponse     ErrorCode = 2001 // 远程响应格式错误
	ErrAttachmentDownload ErrorCode = 2002 // 附件下载失败

	// 本地文件相关错误码 (3000-3999)
	ErrDirectoryCreate ErrorCode = 3000 // 目录创建失败
	ErrFileWrite       ErrorCode = 3001 // 文件写入失败
	ErrFileRead        ErrorCode = 3002 // 文件读取失败

	// 镜像存储相关错误码 (4000-4999)
	ErrMirrorConfig               ErrorCode = 4000 // 镜像配置无效
	ErrMirrorConnection           ErrorCode = 4001 // 镜像存储连接失败
	ErrMirrorUpload               ErrorCode = 4002 // 镜像上传失败
	ErrMirrorProviderNotSupported ErrorCode = 4003 // 镜像存储提供商不支持

	// 备份目录库相关错误码 (5000-5999)
	ErrCatalogConnection ErrorCode = 5000 // 目录库连接失败
	ErrCatalogWrite      ErrorCode = 5001 // 目录库写入失败
)

// AppError 应用错误结构体
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持 errors.Is / errors.As 逐层判断
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// Is 错误码相同即视为同一类错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithOriginalError 添加原始错误
func (e *AppError) WithOriginalError(err error) *AppError {
	e.OriginalError = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails 创建带详细信息的应用错误
func NewWithDetails(code ErrorCode, message string, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装原始错误
// 参数:
//   - code: 错误码
//   - message: 错误消息
//   - err: 原始错误
//
// 返回:
//   - *AppError: 应用错误实例，Details 为原始错误文本
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Message:       message,
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// Wrapf 以错误码默认消息包装原始错误，并在详细信息前附加上下文
func Wrapf(code ErrorCode, err error, format string, args ...interface{}) *AppError {
	appErr := Wrap(code, GetErrorMessage(code), err)
	prefix := fmt.Sprintf(format, args...)
	if appErr.Details != "" {
		appErr.Details = prefix + ": " + appErr.Details
	} else {
		appErr.Details = prefix
	}
	return appErr
}

// GetAppError 获取错误链中的应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess: "success",

	ErrConfigMissing: "config_missing",
	ErrConfigInvalid: "config_invalid",

	ErrRemoteQuery:        "remote_query",
	ErrRemoteResponse:     "remote_response",
	ErrAttachmentDownload: "attachment_download",

	ErrDirectoryCreate: "directory_create",
	ErrFileWrite:       "file_write",
	ErrFileRead:        "file_read",

	ErrMirrorConfig:               "mirror_config",
	ErrMirrorConnection:           "mirror_connection",
	ErrMirrorUpload:               "mirror_upload",
	ErrMirrorProviderNotSupported: "mirror_provider_not_supported",

	ErrCatalogConnection: "catalog_connection",
	ErrCatalogWrite:      "catalog_write",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
// 参数:
//   - code: 错误码
//   - lang: 语言代码，如zh-CN、en-US
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
