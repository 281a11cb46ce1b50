package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// ErrEmptyPool 表示身份池为空；这是启动期的致命配置错误。
var ErrEmptyPool = errors.New("user-agent 池为空")

// UAPool 是只读的 User-Agent 池。
//
// 约束：构造后不可变；Next 之间互相独立（不保证相邻两次不同），并发安全且无锁。
type UAPool struct {
	uas []string
}

// DefaultUserAgents 是未配置 user_agents_file 时使用的内置池。
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:123.0) Gecko/20100101 Firefox/123.0",
}

// NewUAPool 复制并清洗 uas（去掉首尾空白与空项）；清洗后为空则返回 ErrEmptyPool。
func NewUAPool(uas []string) (*UAPool, error) {
	out := make([]string, 0, len(uas))
	for _, ua := range uas {
		ua = strings.TrimSpace(ua)
		if ua == "" {
			continue
		}
		out = append(out, ua)
	}
	if len(out) == 0 {
		return nil, ErrEmptyPool
	}
	return &UAPool{uas: out}, nil
}

// Next 均匀随机地返回池中的一个值。
func (p *UAPool) Next() string {
	return p.uas[rand.Intn(len(p.uas))]
}

// Len 返回池大小。
func (p *UAPool) Len() int { return len(p.uas) }

// uaEntry 兼容两种文件格式：["ua", ...] 或 [{"user-agent": "ua"}, ...]。
type uaEntry string

func (e *uaEntry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = uaEntry(s)
		return nil
	}
	var obj struct {
		UserAgent string `json:"user-agent"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("user-agent 条目既不是字符串也不是 {\"user-agent\": ...}：%w", err)
	}
	*e = uaEntry(obj.UserAgent)
	return nil
}

// LoadUAPool 从 JSON 文件读取身份池（只在启动时调用一次）。
func LoadUAPool(path string) (*UAPool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []uaEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("解析 %q 失败：%w", path, err)
	}
	uas := make([]string, 0, len(entries))
	for _, e := range entries {
		uas = append(uas, string(e))
	}
	p, err := NewUAPool(uas)
	if err != nil {
		return nil, fmt.Errorf("%q：%w", path, err)
	}
	return p, nil
}
