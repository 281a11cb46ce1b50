package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/shikigo/internal/config"
	"github.com/John-Robertt/shikigo/internal/infra/fsx"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件工具",
	}
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "init [path]",
		Short:       "生成带注释的示例配置（不覆盖已有文件）",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.FileName
			if len(args) == 1 {
				target = args[0]
			}
			abs, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("解析配置路径失败：%w", err)
			}

			err = fsx.WriteFileAtomicNoOverwrite(filepath.Dir(abs), filepath.Base(abs), []byte(config.SampleConfig()))
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("配置文件已存在：%s", abs)
			}
			if err != nil {
				return fmt.Errorf("写入示例配置失败：%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入示例配置：%s\n", abs)
			return nil
		},
	}
}
