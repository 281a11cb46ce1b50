package catalog

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/shikigo/internal/domain"
)

// PlaceholderImageURL 在页面没有任何图片时作为封面。
const PlaceholderImageURL = "https://shikimori.one/assets/globals/missing_original.jpg"

// ErrNoHeading 表示条目页缺少 h1；由 Extract 包装为 extraction_failed。
var ErrNoHeading = errors.New("页面缺少 h1")

// 条目页各字段的选择器。每条规则相互独立：任何一条缺失都不影响其它规则。
const (
	nameSelector     = "h1"
	imageSelector    = "img"
	scoreSelector    = ".score-value"
	genreSelector    = ".genre-ru"
	synopsisSelector = ".b-text_with_paragraphs"
)

// Extract 把条目页 HTML 解析为 TitleRecord（直达与点击进入的条目页使用同一套规则）。
//
// 只有名称是必需的；其它字段缺失时降级为默认值，永远不报错。
func Extract(markup string) (domain.TitleRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return domain.TitleRecord{}, &Error{Code: ErrCodeExtractionFailed, Err: err}
	}

	name := extractName(doc)
	if name == "" {
		return domain.TitleRecord{}, &Error{Code: ErrCodeExtractionFailed, Err: ErrNoHeading}
	}

	return domain.TitleRecord{
		Name:     name,
		ImageURL: extractImageURL(doc),
		Score:    extractScore(doc),
		Genres:   extractGenres(doc),
		Synopsis: extractSynopsis(doc),
	}, nil
}

// 站点的 h1 形如 `Клеймор <span>/</span> Claymore`，文本需要折叠空白。
func extractName(doc *goquery.Document) string {
	return normSpace(doc.Find(nameSelector).First().Text())
}

func extractImageURL(doc *goquery.Document) string {
	if src, ok := doc.Find(imageSelector).First().Attr("src"); ok {
		if src = strings.TrimSpace(src); src != "" {
			return src
		}
	}
	return PlaceholderImageURL
}

// extractScore：元素缺失、文本不是数字、负数或 NaN/Inf 时都返回 0。
func extractScore(doc *goquery.Document) float64 {
	s := doc.Find(scoreSelector).First()
	if s.Length() == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s.Text()), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// extractGenres 保持文档顺序，不去重。
func extractGenres(doc *goquery.Document) []string {
	genres := make([]string, 0)
	doc.Find(genreSelector).Each(func(_ int, s *goquery.Selection) {
		genres = append(genres, strings.TrimSpace(s.Text()))
	})
	return genres
}

func extractSynopsis(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find(synopsisSelector).First().Text())
}
