package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/shikigo/internal/catalog"
	"github.com/John-Robertt/shikigo/internal/config"
	"github.com/John-Robertt/shikigo/internal/infra/cache"
	"github.com/John-Robertt/shikigo/internal/infra/httpx"
	"github.com/John-Robertt/shikigo/internal/logging"
)

type globalFlags struct {
	configPath string

	baseURL    string
	baseURLSet bool

	logLevel    string
	logLevelSet bool
}

// commandContext 按需构造各命令共享的依赖（配置只加载一次）。
type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     config.EffectiveConfig
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.EffectiveConfig, error) {
	c.configOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			c.configErr = fmt.Errorf("读取当前目录失败：%w", err)
			return
		}
		eff, err := config.LoadEffective(cwd, config.CLIArgs{
			ConfigPath:  strings.TrimSpace(c.flags.configPath),
			BaseURL:     c.flags.baseURL,
			BaseURLSet:  c.flags.baseURLSet,
			LogLevel:    c.flags.logLevel,
			LogLevelSet: c.flags.logLevelSet,
		})
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  eff.LogLevel,
			Format: eff.LogFormat,
			Writer: cmd.ErrOrStderr(),
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = eff
		c.logger = logger
		logger.Debug("config loaded",
			slog.String("config_path", eff.ConfigPath),
			slog.String("base_url", eff.BaseURL),
			slog.String("db_path", eff.DBPath))
	})
	return c.config, c.configErr
}

func (c *commandContext) componentLogger(component string) *slog.Logger {
	return logging.WithComponent(c.logger, component)
}

// newResolver 根据生效配置装配解析器：身份池 -> HTTP client -> 抓取器 -> 解析器。
func (c *commandContext) newResolver(cmd *cobra.Command) (catalog.Resolver, error) {
	eff, err := c.ensureConfig(cmd)
	if err != nil {
		return catalog.Resolver{}, err
	}

	var pool *httpx.UAPool
	if eff.UserAgentsFile != "" {
		pool, err = httpx.LoadUAPool(eff.UserAgentsFile)
	} else {
		pool, err = httpx.NewUAPool(httpx.DefaultUserAgents)
	}
	if err != nil {
		return catalog.Resolver{}, fmt.Errorf("初始化身份池失败：%w", err)
	}

	client, err := httpx.NewClient(httpx.Options{
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.Timeout,
		UA:       pool,
	})
	if err != nil {
		return catalog.Resolver{}, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	c.componentLogger("resolver").Debug("resolver ready",
		slog.Int("user_agents", pool.Len()),
		slog.Bool("proxy", eff.ProxyURL != ""),
		slog.Duration("timeout", eff.Timeout))

	return catalog.Resolver{
		BaseURL: eff.BaseURL,
		Agents:  pool,
		Fetcher: catalog.Fetcher{Client: client, MaxBytes: eff.MaxBodyBytes},
	}, nil
}

func (c *commandContext) openStore(ctx context.Context, cmd *cobra.Command, readOnly bool) (*cache.Store, error) {
	eff, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(ctx, eff.DBPath, cache.Options{
		ReadOnly: readOnly,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("打开快照数据库 %s 失败：%w", eff.DBPath, err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
