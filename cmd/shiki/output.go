package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// 表格中长文本列的最大宽度（超出自动换行）。
const valueColumnWidth = 80

// isTerminal 判断 w 是否为交互终端；非 *os.File（例如测试中的 buffer）一律视为非终端。
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON 把 v 编码为单个 JSON 文档写到 stdout。
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderKV 渲染两列（字段/值）表格。
func renderKV(rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"字段", "值"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft, WidthMax: valueColumnWidth},
	})
	return tw.Render()
}
