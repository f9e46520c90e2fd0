package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIndexesExistAfterMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	required := map[string][]string{
		"cheater_reports": {"idx_cheater_reports_profile", "idx_cheater_reports_type", "idx_cheater_reports_reporter"},
		"verified_legit":  {"idx_verified_legit_profile"},
	}
	for table, names := range required {
		rows, err := client.db.QueryContext(ctx, "PRAGMA index_list('"+table+"')")
		if err != nil {
			t.Fatalf("query index_list: %v", err)
		}
		indexes := make(map[string]struct{})
		for rows.Next() {
			var (
				seq     int
				name    string
				unique  int
				origin  string
				partial int
			)
			if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
				t.Fatalf("scan index row: %v", err)
			}
			indexes[name] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("iterate index rows: %v", err)
		}
		_ = rows.Close()

		for _, name := range names {
			if _, ok := indexes[name]; !ok {
				t.Fatalf("required index %q not found on %s", name, table)
			}
		}
	}
}

func TestReopenDoesNotReapplyMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	first, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	if err := first.SetServerSettings(ctx, &db.ServerSettings{ServerID: 1, ChannelID: 2}); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	_ = first.Close()

	second, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetServerSettings(ctx, 1)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got == nil || got.ChannelID != 2 {
		t.Fatalf("settings lost across reopen: %#v", got)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)
	failure := errors.New("abort")

	err := client.InTx(ctx, func(tx db.Store) error {
		if err := tx.AddVerification(ctx, &db.VerifiedLegit{VerifierID: 1, ServerID: 1, VerifiedTime: 10, TargetName: "someone", TargetID: 42}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected callback error, got %v", err)
	}

	status, err := client.IsVerified(ctx, 42)
	if err != nil {
		t.Fatalf("is verified: %v", err)
	}
	if status.IsVerified || status.Count != 0 {
		t.Fatalf("rolled back verification is visible: %#v", status)
	}
}

func TestClosedClientReportsStorageUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	_ = client.Close()

	err = client.AddReport(ctx, &db.CheaterReport{ReporterID: 1, ServerID: 1, TargetName: "abc", TargetID: 1, ReportTime: 1, Category: db.SusAsFuck})
	if !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if _, err := client.ListReports(ctx, db.ReportFilter{}); !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable on list, got %v", err)
	}
	if err := client.InTx(ctx, func(db.Store) error { return nil }); !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable on tx, got %v", err)
	}
}
