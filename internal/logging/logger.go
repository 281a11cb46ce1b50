package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// FieldComponent 标记日志来源组件。
const FieldComponent = "component"

// Options 描述 logger 的构造参数。
type Options struct {
	Level  string // debug | info | warn | error
	Format string // console | json
	// Writer 为空时写 stderr（stdout 保留给结果输出）。
	Writer io.Writer
}

// New 按 Options 构造 slog logger。
func New(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := ParseLevel(opts.Level)
	hopts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewNop 返回丢弃所有输出的 logger（测试与未注入 logger 时使用）。
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// WithComponent 给 logger 绑定组件名；logger 为 nil 时返回 NewNop。
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// ParseLevel 把字符串映射为 slog.Level；未知值按 info 处理。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
