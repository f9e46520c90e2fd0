package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/cheatlog/internal/db"
)

func (c *sqliteClient) GetServerSettings(ctx context.Context, serverID int64) (*db.ServerSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().GetServerSettings(ctx, serverID)
}

func (c *sqliteClient) ListServerSettings(ctx context.Context) ([]*db.ServerSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().ListServerSettings(ctx)
}

func (c *sqliteClient) SetServerSettings(ctx context.Context, settings *db.ServerSettings) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().SetServerSettings(ctx, settings)
}

func (c *sqliteClient) DeleteServerSettings(ctx context.Context, serverID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().DeleteServerSettings(ctx, serverID)
}

func (s *queries) GetServerSettings(ctx context.Context, serverID int64) (*db.ServerSettings, error) {
	var settings db.ServerSettings
	err := sqlx.GetContext(ctx, s.q, &settings, `SELECT server_id, channel_id FROM server_settings WHERE server_id = ?`, serverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("get server settings", err)
	}
	return &settings, nil
}

func (s *queries) ListServerSettings(ctx context.Context) ([]*db.ServerSettings, error) {
	settings := []*db.ServerSettings{}
	if err := sqlx.SelectContext(ctx, s.q, &settings, `SELECT server_id, channel_id FROM server_settings ORDER BY server_id`); err != nil {
		return nil, storageError("list server settings", err)
	}
	return settings, nil
}

func (s *queries) SetServerSettings(ctx context.Context, settings *db.ServerSettings) error {
	query := `
		INSERT INTO server_settings (server_id, channel_id)
		VALUES (:server_id, :channel_id)
		ON CONFLICT(server_id) DO UPDATE SET
		channel_id = excluded.channel_id;
	`
	return storageError("set server settings", tool.Err(sqlx.NamedExecContext(ctx, s.q, query, settings)))
}

func (s *queries) DeleteServerSettings(ctx context.Context, serverID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM server_settings WHERE server_id = ?`, serverID)
	return storageError("delete server settings", err)
}
