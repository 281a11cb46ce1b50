package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "shiki",
		Short:         "按名称在 Shikimori 目录中查找动画/漫画条目",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flags.baseURLSet = cmd.Flags().Changed("base-url")
			flags.logLevelSet = cmd.Flags().Changed("log-level")
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "配置文件路径（默认读取当前目录下的 shiki.toml）")
	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "覆盖目录站点域名")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "日志级别：debug|info|warn|error")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newMessageCommand(ctx))
	rootCmd.AddCommand(newSnapshotCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
