package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// ClassKind 是搜索页响应的三种形态。
type ClassKind int

const (
	// NotFound：既没有匹配的标题，也没有搜索结果链接。
	NotFound ClassKind = iota
	// DirectHit：站点在唯一匹配时直接返回了条目页。
	DirectHit
	// SearchResults：结果列表页，需要再抓取 Link 指向的条目页。
	SearchResults
)

func (k ClassKind) String() string {
	switch k {
	case DirectHit:
		return "direct_hit"
	case SearchResults:
		return "search_results"
	default:
		return "not_found"
	}
}

// Classification 是 Classify 的结果；Link 只在 Kind==SearchResults 时有值。
type Classification struct {
	Kind ClassKind
	Link string
}

// 搜索结果中条目标题链接的选择器。
const resultLinkSelector = "a.title"

// Classify 只根据页面形态判断响应属于哪一种（纯函数）。
//
// 规则（顺序固定）：
// 1) 首个 h1 的文本（Unicode case fold 后）包含请求标题 => DirectHit
// 2) 存在 a.title 且 href 非空 => SearchResults{首个链接}
// 3) 其余 => NotFound（包括无法解析的页面）
func Classify(markup, requestedTitle string) Classification {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Classification{Kind: NotFound}
	}
	if headingMatches(doc, requestedTitle) {
		return Classification{Kind: DirectHit}
	}
	href, ok := doc.Find(resultLinkSelector).First().Attr("href")
	if ok && strings.TrimSpace(href) != "" {
		return Classification{Kind: SearchResults, Link: strings.TrimSpace(href)}
	}
	return Classification{Kind: NotFound}
}

func headingMatches(doc *goquery.Document, requestedTitle string) bool {
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 || requestedTitle == "" {
		return false
	}
	// cases.Caser 有状态，不能跨 goroutine 共享：每次调用新建。
	fold := cases.Fold()
	heading := fold.String(normSpace(h1.Text()))
	return strings.Contains(heading, fold.String(requestedTitle))
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
