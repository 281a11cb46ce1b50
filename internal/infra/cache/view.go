package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Field 是快照上可单独查看的字段（对应界面上的按钮）。
type Field string

const (
	FieldSynopsis Field = "synopsis"
	FieldScore    Field = "score"
	FieldGenres   Field = "genre"
)

// 字段为空时展示给用户的提示。
const (
	MsgNoSynopsis = "Описание отсутствует"
	MsgNoScore    = "У тайтла пока нет рейтинга"
	MsgNoGenres   = "У тайтла не указаны жанры"
)

const starEmoji = "⭐"

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldSynopsis, FieldScore, FieldGenres:
		return f, nil
	case "genres":
		return FieldGenres, nil
	default:
		return "", fmt.Errorf("未知字段：%q（只能是 synopsis/score/genre）", s)
	}
}

// Render 返回字段的展示文本；字段为空时 ok=false，text 为对应的提示语。
func Render(s Snapshot, f Field) (text string, ok bool) {
	switch f {
	case FieldSynopsis:
		if s.Record.Synopsis == "" {
			return MsgNoSynopsis, false
		}
		return s.Record.Synopsis, true
	case FieldScore:
		if s.Record.Score <= 0 {
			return MsgNoScore, false
		}
		return strconv.FormatFloat(s.Record.Score, 'f', -1, 64) + " " + starEmoji, true
	case FieldGenres:
		if len(s.Record.Genres) == 0 {
			return MsgNoGenres, false
		}
		return strings.Join(s.Record.Genres, ", "), true
	default:
		return "", false
	}
}
