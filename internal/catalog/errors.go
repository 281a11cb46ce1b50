package catalog

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ErrCodeInvalidName 表示输入不满足名称语法；此时不会发生任何网络请求。
	ErrCodeInvalidName = "invalid_name"
	// ErrCodeNotFound 表示目录中没有匹配的条目。
	ErrCodeNotFound = "not_found"
	// ErrCodeFetchFailed 表示任一抓取阶段的网络/传输失败（含非 2xx 与超时）。
	ErrCodeFetchFailed = "fetch_failed"
	// ErrCodeExtractionFailed 表示页面缺少必需的标题（h1），页面形态异常。
	ErrCodeExtractionFailed = "extraction_failed"
)

// Error 是解析阶段的结构化错误（带 error_code）。
//
// 约束：核心不记录日志、不吞错误；一次解析要么返回记录，要么返回恰好一个 *Error。
type Error struct {
	Code  string
	Title string // 用户输入的原始标题（可为空）
	URL   string // 出错时正在处理的页面（可为空）
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "catalog error"
	}
	var msg string
	switch e.Code {
	case ErrCodeInvalidName:
		msg = fmt.Sprintf("%s：标题 %q 格式不合法", e.Code, e.Title)
	case ErrCodeNotFound:
		msg = fmt.Sprintf("%s：未找到标题 %q", e.Code, e.Title)
	case ErrCodeFetchFailed:
		msg = fmt.Sprintf("%s：抓取 %s 失败", e.Code, e.URL)
	case ErrCodeExtractionFailed:
		msg = fmt.Sprintf("%s：页面 %s 缺少标题", e.Code, e.URL)
	default:
		msg = e.Code
	}
	if e.Err != nil {
		msg += "：" + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
// 错误链上有多个 *Error 时返回最外层的那个。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound 判断 err 是否应当作为“未找到”呈现给用户。
// 页面缺少标题同样无法产出记录，因此 extraction_failed 也视为未找到。
func IsNotFound(err error) bool {
	switch Code(err) {
	case ErrCodeNotFound, ErrCodeExtractionFailed:
		return true
	default:
		return false
	}
}

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// Fetcher 把它包装在 fetch_failed 的 *Error 中返回。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BodyTooLargeError 表示响应体超过了 Fetcher 的上限。
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("响应体超过上限 %d 字节", e.Limit)
}
