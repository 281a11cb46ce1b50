package domain

import "regexp"

// TitleRecord 是一次解析成功后得到的规范化条目。
//
// 约束：
// - Name 在成功解析时必须非空（目录页的双语名称，例如 "Клеймор / Claymore"）
// - Score 恒为非负数；缺失或无法解析时为 0
// - Genres 保持页面原始顺序，不去重；没有时为空切片而不是 nil
// - Synopsis 缺失时为空串
type TitleRecord struct {
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url"`
	Score    float64  `json:"score"`
	Genres   []string `json:"genres"`
	Synopsis string   `json:"synopsis"`
}

// titleRE：一个或多个“词”，词之间恰好一个空格。
// 词只允许拉丁字母、西里尔字母（含 ё/Ё）与数字。
var titleRE = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9]+( [a-zA-Zа-яА-ЯёЁ0-9]+)*$`)

// IsValidTitle 判断用户输入的标题是否满足名称语法（整串匹配，纯函数）。
func IsValidTitle(title string) bool {
	return titleRE.MatchString(title)
}
