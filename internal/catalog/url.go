package catalog

import (
	"net/url"
	"strings"

	"github.com/John-Robertt/shikigo/internal/domain"
)

// DefaultBaseURL 是目录站点的默认域名。
const DefaultBaseURL = "https://shikimori.one"

// SearchPattern 把已校验的标题转为查询串：小写，空格变为 '+'。
// 非 ASCII 字母（西里尔字母）按 query 规则百分号编码。
func SearchPattern(title string) string {
	return url.QueryEscape(strings.ToLower(title))
}

// SearchURL 拼出搜索页 URL：
// - anime：{base}/animes/order-by/aired_on?search={pattern}
// - manga：{base}/mangas?search={pattern}
func SearchURL(base, pattern string, kind domain.MediaKind) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if kind == domain.Manga {
		return base + "/mangas?search=" + pattern
	}
	return base + "/animes/order-by/aired_on?search=" + pattern
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
