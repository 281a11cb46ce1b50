package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/shikigo/internal/domain"
	"github.com/John-Robertt/shikigo/internal/infra/cache"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "查看或清理已保存的解析快照",
	}
	snapshotCmd.AddCommand(newSnapshotShowCommand(ctx))
	snapshotCmd.AddCommand(newSnapshotPurgeCommand(ctx))
	return snapshotCmd
}

type snapshotView struct {
	ID        string              `json:"id"`
	ChatID    int64               `json:"chat_id"`
	CreatedAt time.Time           `json:"created_at"`
	Name      string              `json:"name"`
	Field     string              `json:"field,omitempty"`
	Text      string              `json:"text,omitempty"`
	Empty     bool                `json:"empty,omitempty"`
	Record    *domain.TitleRecord `json:"record,omitempty"`
}

func newSnapshotShowCommand(ctx *commandContext) *cobra.Command {
	var fieldFlag string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "按 ID 查看快照（可只看简介/评分/类型）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var field cache.Field
			if fieldFlag != "" {
				f, err := cache.ParseField(fieldFlag)
				if err != nil {
					return err
				}
				field = f
			}

			store, err := ctx.openStore(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, ok, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("snapshot_not_found：快照 %q 不存在或已被清理", args[0])
			}

			view := snapshotView{
				ID:        snap.ID,
				ChatID:    snap.ChatID,
				CreatedAt: snap.CreatedAt,
				Name:      snap.Record.Name,
			}
			if field == "" {
				view.Record = &snap.Record
			} else {
				text, ok := cache.Render(snap, field)
				view.Field = string(field)
				view.Text = text
				view.Empty = !ok
			}

			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				return writeJSON(cmd, view)
			}
			if field != "" {
				fmt.Fprintln(out, view.Text)
				return nil
			}
			rows := recordRows(snap.Record, snap.ID)
			rows = append(rows, [2]string{"创建时间", snap.CreatedAt.Local().Format(time.DateTime)})
			fmt.Fprintln(out, renderKV(rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&fieldFlag, "field", "f", "", "只显示一个字段：synopsis|score|genre")
	return cmd
}

func newSnapshotPurgeCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "删除早于给定时长的快照（默认使用 snapshot_ttl）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			maxAge := eff.SnapshotTTL
			if cmd.Flags().Changed("older-than") {
				maxAge = olderThan
			}

			store, err := ctx.openStore(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Purge(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			ctx.componentLogger("snapshot").Info("purge done",
				slog.Int64("deleted", n),
				slog.Duration("older_than", maxAge))

			if !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd, map[string]any{"deleted": n, "older_than": maxAge.String()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 条快照（早于 %s）\n", n, maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "删除创建时间早于该时长的快照，例如 30m、24h")
	return cmd
}
