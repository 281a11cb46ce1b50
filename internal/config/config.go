package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/shikigo/internal/catalog"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig 返回带注释的示例配置（config init 使用）。
func SampleConfig() string { return sampleConfig }

const (
	// ErrCodeNotFound 表示通过 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是默认配置文件名（位于 cwd）。
	FileName = "shiki.toml"

	DefaultTimeoutSeconds = 20
	DefaultDBName         = "shiki.db"
	DefaultSnapshotTTL    = time.Hour
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
)

// CLIArgs 是 CLI 暴露的覆盖项；*Set 字段保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	BaseURL    string
	BaseURLSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 shiki.toml 的解析结构。
type FileConfig struct {
	BaseURL        string       `toml:"base_url"`
	UserAgentsFile string       `toml:"user_agents_file"`
	TimeoutSeconds int          `toml:"timeout_seconds"`
	MaxBodyBytes   int64        `toml:"max_body_bytes"`
	Proxy          *ProxyConfig `toml:"proxy"`
	DBPath         string       `toml:"db_path"`
	SnapshotTTL    string       `toml:"snapshot_ttl"`
	LogLevel       string       `toml:"log_level"`
	LogFormat      string       `toml:"log_format"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（路径均为绝对路径）。
type EffectiveConfig struct {
	// ConfigPath 为实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	BaseURL        string
	UserAgentsFile string // 为空表示使用内置身份池
	Timeout        time.Duration
	MaxBodyBytes   int64
	ProxyURL       string

	DBPath      string
	SnapshotTTL time.Duration

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/shiki.toml（可选，不存在时全部使用默认值）
//
// 配置中的相对路径以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
// 覆盖优先级：CLI > config > 默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	baseDir := cwdAbs
	if exists {
		baseDir = filepath.Dir(cfgPath)
	} else {
		cfgPath = ""
	}

	eff, err := merge(baseDir, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(baseDir string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	// base_url：CLI > config > 默认
	baseURL := catalog.DefaultBaseURL
	if cli.BaseURLSet {
		baseURL = cli.BaseURL
	} else if strings.TrimSpace(fc.BaseURL) != "" {
		baseURL = fc.BaseURL
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if err := validateHTTPURL("base_url", baseURL); err != nil {
		return EffectiveConfig{}, err
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	// 范围 [1, 120]；超出截断。
	if timeout < 1 {
		timeout = 1
	}
	if timeout > 120 {
		timeout = 120
	}

	maxBody := fc.MaxBodyBytes
	if maxBody < 0 {
		return EffectiveConfig{}, fmt.Errorf("max_body_bytes 不能为负数：%d", maxBody)
	}
	if maxBody == 0 {
		maxBody = catalog.DefaultMaxBodyBytes
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%w", err)
		}
	}

	uaFile := ""
	if strings.TrimSpace(fc.UserAgentsFile) != "" {
		uaFile = absCleanFrom(baseDir, fc.UserAgentsFile)
	}

	dbPath := fc.DBPath
	if strings.TrimSpace(dbPath) == "" {
		dbPath = DefaultDBName
	}
	dbPath = absCleanFrom(baseDir, dbPath)

	ttl := DefaultSnapshotTTL
	if s := strings.TrimSpace(fc.SnapshotTTL); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("snapshot_ttl 无效：%w", err)
		}
		if d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("snapshot_ttl 必须为正：%q", s)
		}
		ttl = d
	}

	logLevel := DefaultLogLevel
	if cli.LogLevelSet {
		logLevel = cli.LogLevel
	} else if strings.TrimSpace(fc.LogLevel) != "" {
		logLevel = fc.LogLevel
	}
	logLevel = strings.ToLower(strings.TrimSpace(logLevel))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", logLevel)
	}

	logFormat := strings.ToLower(strings.TrimSpace(fc.LogFormat))
	if logFormat == "" {
		logFormat = DefaultLogFormat
	}
	if logFormat != "console" && logFormat != "json" {
		return EffectiveConfig{}, fmt.Errorf("log_format 只能是 console 或 json，实际是 %q", logFormat)
	}

	return EffectiveConfig{
		BaseURL:        baseURL,
		UserAgentsFile: uaFile,
		Timeout:        time.Duration(timeout) * time.Second,
		MaxBodyBytes:   maxBody,
		ProxyURL:       proxyURL,
		DBPath:         dbPath,
		SnapshotTTL:    ttl,
		LogLevel:       logLevel,
		LogFormat:      logFormat,
	}, nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
