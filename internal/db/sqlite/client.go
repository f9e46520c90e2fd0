package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
	"github.com/iamwavecut/cheatlog/resources"
)

const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

var (
	_ db.Client = (*sqliteClient)(nil)
	_ db.Store  = (*queries)(nil)
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
}

// queries runs every statement against either the pool or an open
// transaction. It does no locking of its own.
type queries struct {
	q sqlx.ExtContext
}

func NewSQLiteClient(ctx context.Context, workDir, dbFile string) (*sqliteClient, error) {
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	dbx, err := sqlx.Open("sqlite", "file:"+filepath.Join(workDir, dbFile)+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dbx.SetMaxOpenConns(42)
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.WithField("context", "sqlite").Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) InTx(ctx context.Context, fn func(tx db.Store) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	return storageError("commit transaction", tx.Commit())
}

func (c *sqliteClient) reader() *queries {
	return &queries{q: c.db}
}

// storageError hides driver errors behind ErrStorageUnavailable, keeping
// only their text.
func storageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStorageUnavailable, operation, err)
}
