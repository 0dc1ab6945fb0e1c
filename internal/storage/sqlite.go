package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "pandorum/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutMark(ctx context.Context, key string, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminder_marks (key, until) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET until = excluded.until`,
		key, until.UnixMilli())
	if err != nil {
		return err
	}
	s.maybePrune(ctx)
	return nil
}

func (s *sqliteStore) SeenMark(ctx context.Context, key string) (bool, error) {
	var until int64
	err := s.db.QueryRowContext(ctx,
		`SELECT until FROM reminder_marks WHERE key = ?`, key).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if time.Now().UnixMilli() > until {
		return false, nil
	}
	return true, nil
}

// maybePrune occasionally removes expired marks so the file stays small.
func (s *sqliteStore) maybePrune(ctx context.Context) {
	if s.opCount.Add(1)%s.pruneEvery != 0 {
		return
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminder_marks WHERE until < ?`, time.Now().UnixMilli())
	if err != nil {
		s.log.Debug("marks prune failed", logx.Err(err))
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.log.Debug("pruned expired marks", logx.Int64("count", n))
	}
}
