package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture %s 失败：%v", name, err)
	}
	return string(b)
}

func TestExtract_FullTitlePage(t *testing.T) {
	rec, err := Extract(readFixture(t, "title_made_in_abyss.html"))
	if err != nil {
		t.Fatalf("Extract 失败：%v", err)
	}
	if rec.Name != "Созданный в Бездне / Made in Abyss" {
		t.Fatalf("Name 不符合预期：%q", rec.Name)
	}
	if rec.ImageURL != "https://shikimori.one/system/animes/original/34599.jpg" {
		t.Fatalf("ImageURL 不符合预期：%q", rec.ImageURL)
	}
	if rec.Score != 8.74 {
		t.Fatalf("Score 不符合预期：%v", rec.Score)
	}
	wantGenres := []string{"Фантастика", "Приключения", "Детектив", "Драма", "Фэнтези"}
	if !reflect.DeepEqual(rec.Genres, wantGenres) {
		t.Fatalf("Genres 不符合预期：%q", rec.Genres)
	}
	if !strings.HasPrefix(rec.Synopsis, "Человечество всегда тяготело к изучению неизведанного") {
		t.Fatalf("Synopsis 开头不符合预期：%q", rec.Synopsis)
	}
	if !strings.HasSuffix(rec.Synopsis, "Бездну, Бездна в ответ пристально глядит на тебя?") {
		t.Fatalf("Synopsis 结尾不符合预期：%q", rec.Synopsis)
	}
}

func TestExtract_MissingOptionalFields(t *testing.T) {
	rec, err := Extract(readFixture(t, "title_minimal.html"))
	if err != nil {
		t.Fatalf("Extract 失败：%v", err)
	}
	if rec.Name != "Берсерк / Berserk" {
		t.Fatalf("Name 不符合预期：%q", rec.Name)
	}
	if rec.ImageURL != PlaceholderImageURL {
		t.Fatalf("缺少图片时应使用占位图，实际 %q", rec.ImageURL)
	}
	if rec.Score != 0 {
		t.Fatalf("缺少评分时应为 0，实际 %v", rec.Score)
	}
	if rec.Genres == nil || len(rec.Genres) != 0 {
		t.Fatalf("缺少类型时应为空切片，实际 %#v", rec.Genres)
	}
	if rec.Synopsis != "" {
		t.Fatalf("缺少简介时应为空串，实际 %q", rec.Synopsis)
	}
}

func TestExtract_ScoreDegradesToZero(t *testing.T) {
	for _, s := range []string{"", "N/A", "восемь", "-3.5", "NaN", "+Inf", "7.5 / 10"} {
		page := `<h1>X</h1><div class="score-value">` + s + `</div>`
		rec, err := Extract(page)
		if err != nil {
			t.Fatalf("评分 %q：Extract 不应失败：%v", s, err)
		}
		if rec.Score != 0 {
			t.Fatalf("评分 %q：期望 0，实际 %v", s, rec.Score)
		}
	}

	rec, err := Extract(`<h1>X</h1><div class="score-value"> 10 </div>`)
	if err != nil {
		t.Fatalf("Extract 失败：%v", err)
	}
	if rec.Score != 10 {
		t.Fatalf("期望 10，实际 %v", rec.Score)
	}
}

func TestExtract_GenresKeepOrderAndDuplicates(t *testing.T) {
	page := `<h1>X</h1>
<span class="genre-ru">Драма</span>
<span class="genre-ru"> Комедия </span>
<span class="genre-ru">Драма</span>`
	rec, err := Extract(page)
	if err != nil {
		t.Fatalf("Extract 失败：%v", err)
	}
	want := []string{"Драма", "Комедия", "Драма"}
	if !reflect.DeepEqual(rec.Genres, want) {
		t.Fatalf("Genres 不符合预期：%q", rec.Genres)
	}
}

func TestExtract_ImageWithoutSrcFallsBack(t *testing.T) {
	rec, err := Extract(`<h1>X</h1><img alt="poster"><img src="https://img.test/2.jpg">`)
	if err != nil {
		t.Fatalf("Extract 失败：%v", err)
	}
	if rec.ImageURL != PlaceholderImageURL {
		t.Fatalf("首个 img 没有 src 时应使用占位图，实际 %q", rec.ImageURL)
	}
}

func TestExtract_NoHeading(t *testing.T) {
	for _, page := range []string{readFixture(t, "no_heading.html"), "", "<h1>   </h1>"} {
		_, err := Extract(page)
		if Code(err) != ErrCodeExtractionFailed {
			t.Fatalf("期望 %q，实际 err=%v", ErrCodeExtractionFailed, err)
		}
		if !errors.Is(err, ErrNoHeading) {
			t.Fatalf("期望错误链包含 ErrNoHeading，实际 %v", err)
		}
		if !IsNotFound(err) {
			t.Fatalf("extraction_failed 应视为未找到")
		}
	}
}
