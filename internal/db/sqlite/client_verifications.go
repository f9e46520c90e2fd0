package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/cheatlog/internal/db"
)

const verificationColumns = `id, verifier_user_id, server_id, verified_time, tarkov_game_name, tarkov_profile_id, twitch_name, notes`

func (c *sqliteClient) AddVerification(ctx context.Context, verification *db.VerifiedLegit) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().AddVerification(ctx, verification)
}

func (c *sqliteClient) IsVerified(ctx context.Context, targetID int64) (*db.VerificationStatus, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().IsVerified(ctx, targetID)
}

func (c *sqliteClient) ListVerifications(ctx context.Context) ([]*db.VerifiedLegit, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().ListVerifications(ctx)
}

func (c *sqliteClient) ListTargetVerifications(ctx context.Context, targetID int64) ([]*db.VerifiedLegit, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().ListTargetVerifications(ctx, targetID)
}

func (c *sqliteClient) GetVerificationSummary(ctx context.Context, targetID int64) (*db.VerificationSummary, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().GetVerificationSummary(ctx, targetID)
}

func (s *queries) AddVerification(ctx context.Context, verification *db.VerifiedLegit) error {
	query := `
		INSERT INTO verified_legit (
			verifier_user_id, server_id, verified_time, tarkov_game_name, tarkov_profile_id, twitch_name, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.q.ExecContext(ctx, query,
		verification.VerifierID,
		verification.ServerID,
		verification.VerifiedTime,
		verification.TargetName,
		verification.TargetID,
		verification.Alias,
		verification.Notes,
	)
	if err != nil {
		return storageError("add verification", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storageError("add verification", err)
	}
	verification.ID = id
	return nil
}

func (s *queries) IsVerified(ctx context.Context, targetID int64) (*db.VerificationStatus, error) {
	rows, err := s.ListTargetVerifications(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return db.NewVerificationStatus(targetID, rows), nil
}

// ListVerifications returns every row, most recent first.
func (s *queries) ListVerifications(ctx context.Context) ([]*db.VerifiedLegit, error) {
	rows := []*db.VerifiedLegit{}
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT `+verificationColumns+`
		FROM verified_legit
		ORDER BY verified_time DESC, id DESC
	`)
	if err != nil {
		return nil, storageError("list verifications", err)
	}
	return rows, nil
}

// ListTargetVerifications returns the rows of one target, earliest first.
func (s *queries) ListTargetVerifications(ctx context.Context, targetID int64) ([]*db.VerifiedLegit, error) {
	rows := []*db.VerifiedLegit{}
	err := sqlx.SelectContext(ctx, s.q, &rows, `
		SELECT `+verificationColumns+`
		FROM verified_legit
		WHERE tarkov_profile_id = ?
		ORDER BY verified_time ASC, id ASC
	`, targetID)
	if err != nil {
		return nil, storageError("list target verifications", err)
	}
	return rows, nil
}

func (s *queries) GetVerificationSummary(ctx context.Context, targetID int64) (*db.VerificationSummary, error) {
	rows, err := s.ListTargetVerifications(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return db.Summarize(targetID, rows), nil
}
