package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/John-Robertt/shikigo/internal/domain"
	"github.com/John-Robertt/shikigo/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// Snapshot 是某次解析结果的快照，供之后的界面交互（查看简介/评分/类型）按 ID 读取。
type Snapshot struct {
	ID        string
	ChatID    int64
	Record    domain.TitleRecord
	CreatedAt time.Time
}

// Store 是 sqlite 上的快照存储。
//
// 约束：
// - 只读模式（ReadOnly=true）：只允许读；数据库文件不存在时视为空库，不创建文件
// - 可写模式：首次打开时创建目录与表结构
// - Store 可被多个 goroutine 并发使用（由 database/sql 连接池保证）
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
	logger   *slog.Logger
	now      func() time.Time
}

type Options struct {
	ReadOnly bool
	Logger   *slog.Logger
	// Now 为空时使用 time.Now（测试可注入固定时钟）。
	Now func() time.Time
}

var ErrReadOnly = errors.New("cache: read-only")

// Open 打开（必要时创建）path 处的快照数据库。
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return nil, fmt.Errorf("db_path 不能为空")
	}
	s := &Store{
		path:     path,
		readOnly: opts.ReadOnly,
		logger:   logging.WithComponent(opts.Logger, "cache"),
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.readOnly {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return s, nil
			}
			return nil, err
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败：%w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !s.readOnly {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if !s.readOnly {
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	s.db = db
	return s, nil
}

// Close 关闭底层连接；对只读空库是 no-op。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path 返回数据库文件路径。
func (s *Store) Path() string { return s.path }

// Add 保存一条快照并返回新 ID（uuid）。
func (s *Store) Add(ctx context.Context, chatID int64, rec domain.TitleRecord) (string, error) {
	if s.readOnly {
		return "", ErrReadOnly
	}
	if strings.TrimSpace(rec.Name) == "" {
		return "", fmt.Errorf("快照的 title_name 不能为空")
	}
	genres := rec.Genres
	if genres == nil {
		genres = []string{}
	}
	gb, err := json.Marshal(genres)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, chat_id, title_name, image_url, title_score, title_synopsis, title_genres, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, chatID, rec.Name, rec.ImageURL, rec.Score, rec.Synopsis, string(gb), s.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("写入快照失败：%w", err)
	}
	s.logger.Debug("snapshot stored",
		slog.String("id", id),
		slog.Int64("chat_id", chatID),
		slog.String("title", rec.Name))
	return id, nil
}

// Get 按 ID 读取快照；不存在（或 ID 不是合法 uuid）时 ok=false。
func (s *Store) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	if s.db == nil {
		return Snapshot{}, false, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Snapshot{}, false, nil
	}

	var (
		snap    Snapshot
		genres  string
		created int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, title_name, image_url, title_score, title_synopsis, title_genres, created_at
		 FROM snapshots WHERE id = ?`, parsed.String(),
	).Scan(&snap.ID, &snap.ChatID, &snap.Record.Name, &snap.Record.ImageURL, &snap.Record.Score,
		&snap.Record.Synopsis, &genres, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("读取快照失败：%w", err)
	}
	if err := json.Unmarshal([]byte(genres), &snap.Record.Genres); err != nil {
		return Snapshot{}, false, fmt.Errorf("快照 %s 的 title_genres 损坏：%w", snap.ID, err)
	}
	if snap.Record.Genres == nil {
		snap.Record.Genres = []string{}
	}
	snap.CreatedAt = time.UnixMilli(created).UTC()
	return snap, true, nil
}

// Purge 删除创建时间早于 now-maxAge 的快照，返回删除条数。
func (s *Store) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}
	if maxAge < 0 {
		return 0, fmt.Errorf("maxAge 不能为负数：%v", maxAge)
	}
	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理快照失败：%w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.logger.Debug("snapshots purged", slog.Int64("deleted", n), slog.Duration("max_age", maxAge))
	return n, nil
}
