package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
)

const reportColumns = `id, reporter_user_id, server_id, cheater_game_name, cheater_profile_id, report_time, report_type, absolved, notes`

func (c *sqliteClient) AddReport(ctx context.Context, report *db.CheaterReport) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().AddReport(ctx, report)
}

func (c *sqliteClient) GetReport(ctx context.Context, id int64) (*db.CheaterReport, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().GetReport(ctx, id)
}

func (c *sqliteClient) ListReports(ctx context.Context, filter db.ReportFilter) ([]*db.CheaterReport, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reader().ListReports(ctx, filter)
}

func (c *sqliteClient) AbsolveAllForTarget(ctx context.Context, targetID int64) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().AbsolveAllForTarget(ctx, targetID)
}

func (c *sqliteClient) DeleteReport(ctx context.Context, id int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.reader().DeleteReport(ctx, id)
}

// AddReport inserts the report unless the target already has a verification
// row. The check and the insert are one statement.
func (s *queries) AddReport(ctx context.Context, report *db.CheaterReport) error {
	query := `
		INSERT INTO cheater_reports (
			reporter_user_id, server_id, cheater_game_name, cheater_profile_id, report_time, report_type, absolved, notes
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM verified_legit WHERE tarkov_profile_id = ?)
	`
	result, err := s.q.ExecContext(ctx, query,
		report.ReporterID,
		report.ServerID,
		report.TargetName,
		report.TargetID,
		report.ReportTime,
		report.Category,
		report.Absolved,
		report.Notes,
		report.TargetID,
	)
	if err != nil {
		return storageError("add report", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("add report", err)
	}
	if affected == 0 {
		return apperrors.ErrTargetAlreadyVerified
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storageError("add report", err)
	}
	report.ID = id
	return nil
}

func (s *queries) GetReport(ctx context.Context, id int64) (*db.CheaterReport, error) {
	var report db.CheaterReport
	err := sqlx.GetContext(ctx, s.q, &report, `SELECT `+reportColumns+` FROM cheater_reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("get report", err)
	}
	return &report, nil
}

func (s *queries) ListReports(ctx context.Context, filter db.ReportFilter) ([]*db.CheaterReport, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Category != "" {
		conditions = append(conditions, "report_type = ?")
		args = append(args, filter.Category)
	}
	if filter.ReporterID != 0 {
		conditions = append(conditions, "reporter_user_id = ?")
		args = append(args, filter.ReporterID)
	}
	if filter.TargetID != 0 {
		conditions = append(conditions, "cheater_profile_id = ?")
		args = append(args, filter.TargetID)
	}
	if !filter.IncludeAbsolved {
		conditions = append(conditions, "absolved = 0")
	}

	query := `SELECT ` + reportColumns + ` FROM cheater_reports`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY report_time ASC, id ASC`

	reports := []*db.CheaterReport{}
	if err := sqlx.SelectContext(ctx, s.q, &reports, query, args...); err != nil {
		return nil, storageError("list reports", err)
	}
	return reports, nil
}

func (s *queries) AbsolveAllForTarget(ctx context.Context, targetID int64) (int64, error) {
	result, err := s.q.ExecContext(ctx, `UPDATE cheater_reports SET absolved = 1 WHERE cheater_profile_id = ? AND absolved = 0`, targetID)
	if err != nil {
		return 0, storageError("absolve reports", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storageError("absolve reports", err)
	}
	return affected, nil
}

func (s *queries) DeleteReport(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM cheater_reports WHERE id = ?`, id)
	if err != nil {
		return storageError("delete report", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("delete report", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
