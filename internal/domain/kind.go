package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MediaKind 区分目录中的两类条目。
type MediaKind string

const (
	Anime MediaKind = "anime"
	Manga MediaKind = "manga"
)

func (k MediaKind) Valid() bool {
	return k == Anime || k == Manga
}

// ParseKind 接受英文与俄文两种写法（大小写不敏感）。
func ParseKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anime", "аниме":
		return Anime, nil
	case "manga", "манга":
		return Manga, nil
	default:
		return "", fmt.Errorf("未知类型：%q（只能是 anime 或 manga）", s)
	}
}

// SearchRequest 是一次解析的输入。RawTitle 保持用户原文，合法性由解析器校验。
type SearchRequest struct {
	RawTitle string
	Kind     MediaKind
}

// ParseMessage 从聊天消息中识别 "<类型词> <标题>" 形式的请求。
//
// 规则：
// - 类型词位于消息开头，大小写不敏感：аниме/манга（也接受 anime/manga）
// - 类型词后必须紧跟一个空白字符；其后的全部内容原样作为 RawTitle
// - 不满足时 ok=false（消息不是搜索请求，而不是错误）
func ParseMessage(text string) (req SearchRequest, ok bool) {
	for _, kw := range []string{"аниме", "манга", "anime", "manga"} {
		n := len(kw)
		if len(text) <= n || !strings.EqualFold(text[:n], kw) {
			continue
		}
		r, size := utf8.DecodeRuneInString(text[n:])
		if !unicode.IsSpace(r) {
			continue
		}
		kind, err := ParseKind(kw)
		if err != nil {
			return SearchRequest{}, false
		}
		return SearchRequest{RawTitle: text[n+size:], Kind: kind}, true
	}
	return SearchRequest{}, false
}
