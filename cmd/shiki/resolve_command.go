package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/shikigo/internal/catalog"
	"github.com/John-Robertt/shikigo/internal/domain"
	"github.com/John-Robertt/shikigo/internal/infra/fsx"
)

// resolveResult 是 resolve/message 在非终端模式下输出到 stdout 的唯一 JSON 文档。
type resolveResult struct {
	Kind       domain.MediaKind    `json:"kind"`
	Title      string              `json:"title"`
	Record     *domain.TitleRecord `json:"record,omitempty"`
	SnapshotID string              `json:"snapshot_id,omitempty"`
	ErrorCode  string              `json:"error_code,omitempty"`
	ErrorMsg   string              `json:"error_msg,omitempty"`
}

type resolveOptions struct {
	save   bool
	chatID int64
	out    string
}

func (o *resolveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.save, "save", false, "把结果保存为快照（之后可用 snapshot show 查看）")
	cmd.Flags().Int64Var(&o.chatID, "chat-id", 0, "快照关联的会话 ID")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "把结果 JSON 原子写入该文件（覆盖已有文件）")
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <anime|manga> <title...>",
		Short: "按类型与名称解析目录条目",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			req := domain.SearchRequest{Kind: kind, RawTitle: strings.Join(args[1:], " ")}
			return runResolve(cmd, ctx, req, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func newMessageCommand(ctx *commandContext) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "message <text>",
		Short: "把一条聊天消息（例如 \"аниме Claymore\"）当作搜索请求处理",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, ok := domain.ParseMessage(args[0])
			if !ok {
				return fmt.Errorf("消息不是搜索请求：%q（应以 аниме/манга 开头，后跟空格与标题）", args[0])
			}
			return runResolve(cmd, ctx, req, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runResolve(cmd *cobra.Command, ctx *commandContext, req domain.SearchRequest, opts *resolveOptions) error {
	if opts.chatID != 0 && !opts.save {
		return errors.New("--chat-id 需要与 --save 一起使用")
	}

	resolver, err := ctx.newResolver(cmd)
	if err != nil {
		return err
	}
	logger := ctx.componentLogger("resolve")

	res := resolveResult{Kind: req.Kind, Title: req.RawTitle}
	rec, resolveErr := resolver.Resolve(cmd.Context(), req.RawTitle, req.Kind)
	if resolveErr != nil {
		res.ErrorCode = catalog.Code(resolveErr)
		res.ErrorMsg = resolveErr.Error()
		logger.Info("resolve failed",
			slog.String("kind", string(req.Kind)),
			slog.String("title", req.RawTitle),
			slog.String("error_code", res.ErrorCode))
		if !isTerminal(cmd.OutOrStdout()) {
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
		}
		return resolveErr
	}
	res.Record = &rec
	logger.Info("resolved",
		slog.String("kind", string(req.Kind)),
		slog.String("title", req.RawTitle),
		slog.String("name", rec.Name))

	if opts.save {
		id, err := saveSnapshot(cmd, ctx, opts.chatID, rec)
		if err != nil {
			return err
		}
		res.SnapshotID = id
	}

	if opts.out != "" {
		if err := writeResultFile(opts.out, res); err != nil {
			return fmt.Errorf("写入 %s 失败：%w", opts.out, err)
		}
	}

	if isTerminal(cmd.OutOrStdout()) {
		fmt.Fprintln(cmd.OutOrStdout(), renderKV(recordRows(rec, res.SnapshotID)))
		return nil
	}
	return writeJSON(cmd, res)
}

// saveSnapshot 保存快照，并顺带清理超过 snapshot_ttl 的旧快照。
func saveSnapshot(cmd *cobra.Command, ctx *commandContext, chatID int64, rec domain.TitleRecord) (string, error) {
	eff, err := ctx.ensureConfig(cmd)
	if err != nil {
		return "", err
	}
	store, err := ctx.openStore(cmd.Context(), cmd, false)
	if err != nil {
		return "", err
	}
	defer store.Close()

	id, err := store.Add(cmd.Context(), chatID, rec)
	if err != nil {
		return "", err
	}
	if _, err := store.Purge(cmd.Context(), eff.SnapshotTTL); err != nil {
		// 清理失败不影响本次保存。
		ctx.componentLogger("resolve").Warn("purge expired snapshots failed", slog.Any("error", err))
	}
	return id, nil
}

func writeResultFile(path string, res resolveResult) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(abs), filepath.Base(abs), b)
}

func recordRows(rec domain.TitleRecord, snapshotID string) [][2]string {
	score := "-"
	if rec.Score > 0 {
		score = strconv.FormatFloat(rec.Score, 'f', -1, 64)
	}
	genres := "-"
	if len(rec.Genres) > 0 {
		genres = strings.Join(rec.Genres, ", ")
	}
	synopsis := rec.Synopsis
	if synopsis == "" {
		synopsis = "-"
	}
	rows := [][2]string{
		{"名称", rec.Name},
		{"评分", score},
		{"类型", genres},
		{"封面", rec.ImageURL},
		{"简介", synopsis},
	}
	if snapshotID != "" {
		rows = append(rows, [2]string{"快照", snapshotID})
	}
	return rows
}
