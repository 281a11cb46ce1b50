package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/John-Robertt/shikigo/internal/domain"
	"github.com/John-Robertt/shikigo/internal/infra/httpx"
)

// catalogServer 模拟目录站点：按搜索词返回不同形态的页面，并记录每次请求。
type catalogServer struct {
	t *testing.T

	// search 把 "<kind>:<search>" 映射到 fixture；未命中时返回空结果页。
	search map[string]string
	// pages 把条目页路径映射到 fixture。
	pages map[string]string

	mu       sync.Mutex
	requests []string
	agents   []string
}

func (s *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	s.agents = append(s.agents, r.Header.Get("User-Agent"))
	s.mu.Unlock()

	var fixture string
	switch r.URL.Path {
	case "/animes/order-by/aired_on":
		fixture = s.search["anime:"+r.URL.Query().Get("search")]
	case "/mangas":
		fixture = s.search["manga:"+r.URL.Query().Get("search")]
	default:
		var ok bool
		fixture, ok = s.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
	}
	if fixture == "" {
		fixture = "search_empty.html"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(readFixture(s.t, fixture)))
}

func (s *catalogServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newCatalog(t *testing.T) (*catalogServer, *httptest.Server) {
	t.Helper()
	cs := &catalogServer{
		t: t,
		search: map[string]string{
			"anime:claymore":      "title_claymore.html",
			"anime:made in abyss": "search_results.html",
			"manga:берсерк":       "title_minimal.html",
		},
		pages: map[string]string{
			"/animes/z34599-made-in-abyss": "title_made_in_abyss.html",
		},
	}
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)
	return cs, srv
}

// seqAgents 依次返回固定序列，用于断言每次抓取都会轮换身份。
type seqAgents struct {
	mu  sync.Mutex
	uas []string
	i   int
}

func (a *seqAgents) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ua := a.uas[a.i%len(a.uas)]
	a.i++
	return ua
}

func newResolver(t *testing.T, base string, agents Agents) Resolver {
	t.Helper()
	c, err := httpx.NewClient(httpx.Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return Resolver{BaseURL: base, Agents: agents, Fetcher: Fetcher{Client: c}}
}

func TestResolve_DirectHit(t *testing.T) {
	cs, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua-1"}})

	rec, err := r.Resolve(context.Background(), "Claymore", domain.Anime)
	if err != nil {
		t.Fatalf("Resolve 失败：%v", err)
	}
	if !strings.Contains(rec.Name, "Claymore") {
		t.Fatalf("Name 应包含 Claymore，实际 %q", rec.Name)
	}
	if rec.Score < 0 || rec.Score > 10 {
		t.Fatalf("Score 超出 [0,10]：%v", rec.Score)
	}
	if len(rec.Genres) == 0 {
		t.Fatalf("Genres 不应为空")
	}
	if cs.count() != 1 {
		t.Fatalf("直达条目页只应抓取 1 次，实际 %d：%q", cs.count(), cs.requests)
	}
	if cs.requests[0] != "/animes/order-by/aired_on?search=claymore" {
		t.Fatalf("搜索 URL 不符合预期：%q", cs.requests[0])
	}
}

func TestResolve_SearchResultsClickThrough(t *testing.T) {
	cs, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua-1", "ua-2"}})

	rec, err := r.Resolve(context.Background(), "Made in Abyss", domain.Anime)
	if err != nil {
		t.Fatalf("Resolve 失败：%v", err)
	}
	if rec.Name != "Созданный в Бездне / Made in Abyss" {
		t.Fatalf("Name 不符合预期：%q", rec.Name)
	}
	want := []string{
		"/animes/order-by/aired_on?search=made+in+abyss",
		"/animes/z34599-made-in-abyss",
	}
	if !reflect.DeepEqual(cs.requests, want) {
		t.Fatalf("请求序列不符合预期：%q", cs.requests)
	}
	if !reflect.DeepEqual(cs.agents, []string{"ua-1", "ua-2"}) {
		t.Fatalf("两次抓取应分别轮换身份：%q", cs.agents)
	}
}

func TestResolve_DirectHitAndClickThroughYieldSameRecord(t *testing.T) {
	// 同一条目：一个站点直接返回条目页，另一个站点先给出结果列表。
	_, viaSearch := newCatalog(t)
	direct := &catalogServer{
		t:      t,
		search: map[string]string{"anime:made in abyss": "title_made_in_abyss.html"},
	}
	directSrv := httptest.NewServer(direct)
	defer directSrv.Close()

	agents := &seqAgents{uas: []string{"ua"}}
	got1, err := newResolver(t, viaSearch.URL, agents).Resolve(context.Background(), "Made in Abyss", domain.Anime)
	if err != nil {
		t.Fatalf("Resolve（结果列表）失败：%v", err)
	}
	got2, err := newResolver(t, directSrv.URL, agents).Resolve(context.Background(), "Made in Abyss", domain.Anime)
	if err != nil {
		t.Fatalf("Resolve（直达）失败：%v", err)
	}
	if !reflect.DeepEqual(got1, got2) {
		t.Fatalf("两种路径的结果应一致：\n%+v\n%+v", got1, got2)
	}
	if direct.count() != 1 {
		t.Fatalf("直达路径只应抓取 1 次，实际 %d", direct.count())
	}
}

func TestResolve_Manga(t *testing.T) {
	cs, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua"}})

	rec, err := r.Resolve(context.Background(), "Берсерк", domain.Manga)
	if err != nil {
		t.Fatalf("Resolve 失败：%v", err)
	}
	if rec.Name != "Берсерк / Berserk" {
		t.Fatalf("Name 不符合预期：%q", rec.Name)
	}
	if !strings.HasPrefix(cs.requests[0], "/mangas?search=") {
		t.Fatalf("manga 应使用 /mangas 搜索：%q", cs.requests[0])
	}
}

func TestResolve_NotFound(t *testing.T) {
	_, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua"}})

	rec, err := r.Resolve(context.Background(), "asfjkdgalr", domain.Anime)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeNotFound, err)
	}
	if !reflect.DeepEqual(rec, domain.TitleRecord{}) {
		t.Fatalf("失败时不应返回部分记录：%+v", rec)
	}
	var e *Error
	if !errors.As(err, &e) || e.Title != "asfjkdgalr" {
		t.Fatalf("错误应携带原始标题：%v", err)
	}
}

func TestResolve_InvalidNameDoesNoIO(t *testing.T) {
	cs, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua"}})

	_, err := r.Resolve(context.Background(), "Not;.valid-title", domain.Anime)
	if Code(err) != ErrCodeInvalidName {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalidName, err)
	}
	if cs.count() != 0 {
		t.Fatalf("非法名称不应发起请求，实际 %d 次", cs.count())
	}
}

func TestResolve_SecondStageFetchFailed(t *testing.T) {
	cs, srv := newCatalog(t)
	delete(cs.pages, "/animes/z34599-made-in-abyss")
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua"}})

	_, err := r.Resolve(context.Background(), "Made in Abyss", domain.Anime)
	if Code(err) != ErrCodeFetchFailed {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeFetchFailed, err)
	}
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("错误链应包含 404 HTTPStatusError，实际 %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Title != "Made in Abyss" || !strings.HasSuffix(e.URL, "/animes/z34599-made-in-abyss") {
		t.Fatalf("错误应携带标题与条目页 URL：%+v", e)
	}
}

func TestResolve_ResultPageWithoutHeading(t *testing.T) {
	cs, srv := newCatalog(t)
	cs.pages["/animes/z34599-made-in-abyss"] = "no_heading.html"
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"ua"}})

	_, err := r.Resolve(context.Background(), "Made in Abyss", domain.Anime)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("缺少标题应呈现为 %q，实际 err=%v", ErrCodeNotFound, err)
	}
	if !errors.Is(err, ErrNoHeading) {
		t.Fatalf("错误链应保留 ErrNoHeading：%v", err)
	}
}

type stubFetcher struct {
	calls int
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL, userAgent string) (string, error) {
	f.calls++
	return "", f.err
}

func TestResolve_FetchErrorWrapped(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection reset")}
	r := Resolver{BaseURL: "https://catalog.test", Agents: &seqAgents{uas: []string{"ua"}}, Fetcher: f}

	_, err := r.Resolve(context.Background(), "Claymore", domain.Anime)
	if Code(err) != ErrCodeFetchFailed {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeFetchFailed, err)
	}
	if f.calls != 1 {
		t.Fatalf("不应重试：期望 1 次抓取，实际 %d", f.calls)
	}
}

func TestResolve_RejectsMisuse(t *testing.T) {
	f := &stubFetcher{}
	if _, err := (Resolver{Fetcher: f}).Resolve(context.Background(), "Claymore", domain.Anime); err == nil || Code(err) != "" {
		t.Fatalf("缺少 Agents 时期望普通错误，实际 %v", err)
	}
	r := Resolver{Agents: &seqAgents{uas: []string{"ua"}}, Fetcher: f}
	if _, err := r.Resolve(context.Background(), "Claymore", domain.MediaKind("ranobe")); err == nil || Code(err) != "" {
		t.Fatalf("未知类型时期望普通错误，实际 %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("参数错误时不应发起请求")
	}
}

func TestResolve_Concurrent(t *testing.T) {
	_, srv := newCatalog(t)
	r := newResolver(t, srv.URL, &seqAgents{uas: []string{"a", "b", "c"}})

	titles := []string{"Claymore", "Made in Abyss", "asfjkdgalr", "Not;.valid-title"}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, title := range titles {
			wg.Add(1)
			go func(title string) {
				defer wg.Done()
				_, err := r.Resolve(context.Background(), title, domain.Anime)
				switch title {
				case "Claymore", "Made in Abyss":
					if err != nil {
						t.Errorf("%q 不期望错误：%v", title, err)
					}
				case "asfjkdgalr":
					if Code(err) != ErrCodeNotFound {
						t.Errorf("%q 期望 not_found，实际 %v", title, err)
					}
				default:
					if Code(err) != ErrCodeInvalidName {
						t.Errorf("%q 期望 invalid_name，实际 %v", title, err)
					}
				}
			}(title)
		}
	}
	wg.Wait()
}
