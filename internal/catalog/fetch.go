package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes 是单个页面的读取上限。
const DefaultMaxBodyBytes int64 = 8 << 20

// Fetcher 对一个 URL 发起一次 GET，并以文本形式返回完整响应体。
//
// 约束：
// - 不做缓存、不做重试（失败立即返回 fetch_failed）
// - User-Agent 由调用方显式给出；超时由 Client.Timeout 与 ctx 共同约束
type Fetcher struct {
	Client *http.Client
	// MaxBytes<=0 时使用 DefaultMaxBodyBytes。
	MaxBytes int64
}

func (f Fetcher) Fetch(ctx context.Context, pageURL, userAgent string) (string, error) {
	if f.Client == nil {
		return "", errors.New("http client 不能为空")
	}
	b, err := f.fetch(ctx, pageURL, userAgent)
	if err != nil {
		return "", &Error{Code: ErrCodeFetchFailed, URL: pageURL, Err: err}
	}
	return string(b), nil
}

func (f Fetcher) fetch(ctx context.Context, pageURL, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, &BodyTooLargeError{URL: pageURL, Limit: limit}
	}
	return b, nil
}
