package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/shikigo/internal/domain"
)

// Agents 为每次出站请求提供一个身份（User-Agent）。
type Agents interface {
	Next() string
}

// PageFetcher 抓取单个页面；失败时返回 fetch_failed 的 *Error。
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL, userAgent string) (string, error)
}

// Resolver 把“校验 -> 搜索 -> 判别 -> (再次抓取) -> 解析”串成一次解析。
//
// 约束：
// - 每次 Resolve 是独立的顺序流水线；Resolver 本身不可变，可被多个 goroutine 并发使用
// - 不缓存、不重试：任一阶段失败立即返回
// - 两次抓取分别轮换身份
type Resolver struct {
	// BaseURL 为空时使用 DefaultBaseURL。
	BaseURL string
	Agents  Agents
	Fetcher PageFetcher
}

func (r Resolver) baseURL() string {
	u := strings.TrimSpace(r.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// Resolve 按名称与类型解析出唯一的 TitleRecord，或返回恰好一个 *Error。
func (r Resolver) Resolve(ctx context.Context, raw string, kind domain.MediaKind) (domain.TitleRecord, error) {
	if r.Agents == nil || r.Fetcher == nil {
		return domain.TitleRecord{}, errors.New("resolver 未初始化：Agents/Fetcher 不能为空")
	}
	if !kind.Valid() {
		return domain.TitleRecord{}, fmt.Errorf("未知类型：%q", kind)
	}
	if !domain.IsValidTitle(raw) {
		return domain.TitleRecord{}, &Error{Code: ErrCodeInvalidName, Title: raw}
	}

	searchURL := SearchURL(r.baseURL(), SearchPattern(raw), kind)
	markup, err := r.Fetcher.Fetch(ctx, searchURL, r.Agents.Next())
	if err != nil {
		return domain.TitleRecord{}, withTitle(err, raw, searchURL)
	}

	pageURL := searchURL
	c := Classify(markup, raw)
	switch c.Kind {
	case DirectHit:
		// 站点在唯一匹配时直接返回条目页：当前页面即为目标。
	case SearchResults:
		pageURL = resolveURL(searchURL, c.Link)
		markup, err = r.Fetcher.Fetch(ctx, pageURL, r.Agents.Next())
		if err != nil {
			return domain.TitleRecord{}, withTitle(err, raw, pageURL)
		}
	default:
		return domain.TitleRecord{}, &Error{Code: ErrCodeNotFound, Title: raw, URL: searchURL}
	}

	rec, err := Extract(markup)
	if err != nil {
		// 缺少标题的条目页无法产出记录：对调用方呈现为 not_found，保留原因链。
		var ee *Error
		if errors.As(err, &ee) {
			ee.Title, ee.URL = raw, pageURL
		}
		return domain.TitleRecord{}, &Error{Code: ErrCodeNotFound, Title: raw, URL: pageURL, Err: err}
	}
	return rec, nil
}

// withTitle 给抓取错误补上标题与 URL；非 *Error 的错误统一包装为 fetch_failed。
func withTitle(err error, title, pageURL string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Title = title
		if e.URL == "" {
			e.URL = pageURL
		}
		return e
	}
	return &Error{Code: ErrCodeFetchFailed, Title: title, URL: pageURL, Err: err}
}
