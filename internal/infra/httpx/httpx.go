package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout 是单次抓取（含读 body）的总超时。
	DefaultTimeout = 20 * time.Second
)

// Transport 把“UA 兜底 + 代理 + keep-alive 策略”固化为统一策略。
//
// 约束：
// - 不做重试：一次请求失败即返回，重试策略属于调用方
// - 请求已带 User-Agent 时不覆盖（解析器按请求显式轮换身份）
type Transport struct {
	Base *http.Transport

	// UA 用于给未设置 User-Agent 的请求兜底；为 nil 时不设置。
	UA *UAPool

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" && t.UA != nil {
		r.Header.Set("User-Agent", t.UA.Next())
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// Options 描述目录抓取 client 的网络策略。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	UA       *UAPool
}

// NewClient 构造用于目录页面抓取的 HTTP client。
//
// 规则：
// - ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - Timeout<=0 时使用 DefaultTimeout
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL := strings.TrimSpace(opts.ProxyURL); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: &Transport{
			Base:              base,
			UA:                opts.UA,
			DisableKeepAlives: disableKeepAlives,
		},
		Timeout: timeout,
	}, nil
}
