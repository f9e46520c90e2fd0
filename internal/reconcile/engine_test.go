package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/db/sqlite"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
	"github.com/iamwavecut/cheatlog/internal/event"
	"github.com/iamwavecut/cheatlog/internal/naming"
	"github.com/iamwavecut/cheatlog/internal/observability"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Queueable
}

func (p *recordingPublisher) Publish(e event.Queueable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []event.Queueable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Queueable(nil), p.events...)
}

func newTestStore(t *testing.T) db.Client {
	t.Helper()
	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "cheatlog.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, db.Client) {
	t.Helper()
	store := newTestStore(t)
	return NewEngine(store, naming.DefaultPolicy, opts...), store
}

func report(target int64, reporter int64, at int64, category db.Category) ReportInput {
	return ReportInput{
		ReporterID: reporter,
		ServerID:   10,
		TargetName: "suspect",
		TargetID:   target,
		Category:   category,
		Time:       at,
	}
}

func verification(target int64, verifier int64, at int64) VerificationInput {
	return VerificationInput{
		VerifierID: verifier,
		ServerID:   10,
		TargetName: "suspect",
		TargetID:   target,
		Time:       at,
	}
}

func activeReports(t *testing.T, store db.Store, target int64) []*db.CheaterReport {
	t.Helper()
	reports, err := store.ListReports(context.Background(), db.ReportFilter{TargetID: target})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	return reports
}

func TestSubmitReportPersistsUnabsolved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	in := report(42, 1, 1000, db.SusAsFuck)
	in.TargetName = "  suspect  "
	in.Notes = "  wallhack "
	got, err := engine.SubmitReport(ctx, in)
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	if got.ID == 0 || got.Absolved || got.TargetName != "suspect" || got.GetNotes() != "wallhack" {
		t.Fatalf("unexpected report: %#v", got)
	}
	if reports := activeReports(t, store, 42); len(reports) != 1 {
		t.Fatalf("active reports = %d, want 1", len(reports))
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "report short name",
			run: func() error {
				in := report(1, 1, 1, db.SusAsFuck)
				in.TargetName = "ab"
				_, err := engine.SubmitReport(ctx, in)
				return err
			},
			want: apperrors.ErrInvalidName,
		},
		{
			name: "report digit run",
			run: func() error {
				in := report(1, 1, 1, db.SusAsFuck)
				in.TargetName = "aaaa12345"
				_, err := engine.SubmitReport(ctx, in)
				return err
			},
			want: apperrors.ErrInvalidName,
		},
		{
			name: "report unknown category",
			run: func() error {
				_, err := engine.SubmitReport(ctx, report(1, 1, 1, db.Category("aimbot")))
				return err
			},
			want: apperrors.ErrInvalidCategory,
		},
		{
			name: "report zero profile id",
			run: func() error {
				_, err := engine.SubmitReport(ctx, report(0, 1, 1, db.SusAsFuck))
				return err
			},
			want: apperrors.ErrInvalidProfileID,
		},
		{
			name: "report negative profile id",
			run: func() error {
				_, err := engine.SubmitReport(ctx, report(-5, 1, 1, db.KilledByCheater))
				return err
			},
			want: apperrors.ErrInvalidProfileID,
		},
		{
			name: "verification zero profile id",
			run: func() error {
				_, err := engine.SubmitVerification(ctx, verification(0, 1, 1))
				return err
			},
			want: apperrors.ErrInvalidProfileID,
		},
		{
			name: "verification with space",
			run: func() error {
				in := verification(1, 1, 1)
				in.TargetName = "has space"
				_, err := engine.SubmitVerification(ctx, in)
				return err
			},
			want: apperrors.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		if err := tt.run(); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	// target 0 lists the whole ledger
	if reports := activeReports(t, store, 0); len(reports) != 0 {
		t.Fatalf("rejected input wrote %d reports", len(reports))
	}
	all, err := store.ListVerifications(ctx)
	if err != nil {
		t.Fatalf("list verifications: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected input wrote %d verifications", len(all))
	}
	status, err := store.IsVerified(ctx, 1)
	if err != nil {
		t.Fatalf("is verified: %v", err)
	}
	if status.IsVerified {
		t.Fatalf("rejected verification was persisted")
	}
}

func TestVerificationAbsolvesAllReports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	for i, category := range db.Categories {
		if _, err := engine.SubmitReport(ctx, report(77, int64(i+1), int64(100+i), category)); err != nil {
			t.Fatalf("submit report: %v", err)
		}
	}
	if _, err := engine.SubmitReport(ctx, report(78, 1, 100, db.SusAsFuck)); err != nil {
		t.Fatalf("submit unrelated report: %v", err)
	}

	result, err := engine.SubmitVerification(ctx, verification(77, 9, 500))
	if err != nil {
		t.Fatalf("submit verification: %v", err)
	}
	if !result.First || result.Absolved != int64(len(db.Categories)) || result.Count != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if reports := activeReports(t, store, 77); len(reports) != 0 {
		t.Fatalf("active reports after verification = %d, want 0", len(reports))
	}
	all, err := store.ListReports(ctx, db.ReportFilter{TargetID: 77, IncludeAbsolved: true})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(all) != len(db.Categories) {
		t.Fatalf("history lost: got %d reports", len(all))
	}
	for _, r := range all {
		if !r.Absolved {
			t.Fatalf("report %d not absolved", r.ID)
		}
	}
	if reports := activeReports(t, store, 78); len(reports) != 1 {
		t.Fatalf("unrelated target touched: %d active", len(reports))
	}
}

func TestReportAfterVerificationRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	metrics := observability.NewMetrics()
	engine, store := newTestEngine(t, WithMetrics(metrics))

	if _, err := engine.SubmitVerification(ctx, verification(90, 5, 100)); err != nil {
		t.Fatalf("submit verification: %v", err)
	}
	if _, err := engine.SubmitVerification(ctx, verification(90, 6, 200)); err != nil {
		t.Fatalf("submit verification: %v", err)
	}

	for _, category := range db.Categories {
		_, err := engine.SubmitReport(ctx, report(90, 1, 300, category))
		if !errors.Is(err, apperrors.ErrTargetAlreadyVerified) {
			t.Fatalf("expected already verified, got %v", err)
		}
		var verified *AlreadyVerifiedError
		if !errors.As(err, &verified) {
			t.Fatalf("expected *AlreadyVerifiedError, got %T", err)
		}
		if verified.Status.Count != 2 || verified.Status.First().VerifierID != 5 {
			t.Fatalf("unexpected status in rejection: %+v", verified.Status)
		}
	}

	all, err := store.ListReports(ctx, db.ReportFilter{TargetID: 90, IncludeAbsolved: true})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected reports were persisted: %d", len(all))
	}
}

func TestFirstVerifierStableRegardlessOfCallOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	// V2 at t=200 lands before V1 at t=100
	if _, err := engine.SubmitVerification(ctx, verification(300, 2, 200)); err != nil {
		t.Fatalf("submit verification: %v", err)
	}
	if _, err := engine.SubmitVerification(ctx, verification(300, 1, 100)); err != nil {
		t.Fatalf("submit verification: %v", err)
	}

	status, err := engine.Status(ctx, 300)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := status.Verifications[0].VerifierID; got != 1 {
		t.Fatalf("first verifier = %d, want 1", got)
	}
	summary, err := store.GetVerificationSummary(ctx, 300)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.FirstVerifierID != 1 || summary.FirstVerifiedTime != 100 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestReverificationIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	if _, err := engine.SubmitReport(ctx, report(400, 1, 10, db.KilledByCheater)); err != nil {
		t.Fatalf("submit report: %v", err)
	}
	first, err := engine.SubmitVerification(ctx, verification(400, 2, 20))
	if err != nil {
		t.Fatalf("first verification: %v", err)
	}
	second, err := engine.SubmitVerification(ctx, verification(400, 3, 30))
	if err != nil {
		t.Fatalf("second verification: %v", err)
	}

	if !first.First || first.Absolved != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if second.First || second.Absolved != 0 || second.Count != first.Count+1 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	status, err := store.IsVerified(ctx, 400)
	if err != nil {
		t.Fatalf("is verified: %v", err)
	}
	if status.Count != 2 {
		t.Fatalf("count = %d, want 2", status.Count)
	}
}

func TestSubmissionsPublishEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	publisher := &recordingPublisher{}
	engine, _ := newTestEngine(t, WithPublisher(publisher), WithEventTTL(time.Minute))

	in := report(500, 1, 1000, db.WordOfMouth)
	in.Notes = "heard it"
	if _, err := engine.SubmitReport(ctx, in); err != nil {
		t.Fatalf("submit report: %v", err)
	}
	v := verification(500, 2, 2000)
	v.Alias = "streamer"
	if _, err := engine.SubmitVerification(ctx, v); err != nil {
		t.Fatalf("submit verification: %v", err)
	}
	if _, err := engine.SubmitReport(ctx, report(500, 1, 3000, db.WordOfMouth)); err == nil {
		t.Fatalf("expected rejection")
	}

	events := publisher.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	filed, ok := events[0].(*event.ReportFiled)
	if !ok || filed.Category != "word_of_mouth" || filed.Notes != "heard it" || filed.TargetID != 500 {
		t.Fatalf("unexpected report event: %#v", events[0])
	}
	verified, ok := events[1].(*event.TargetVerified)
	if !ok || !verified.First || verified.Absolved != 1 || verified.Alias != "streamer" {
		t.Fatalf("unexpected verification event: %#v", events[1])
	}
}

func TestClockDefaultsTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixed := time.Unix(1700000000, 0)
	engine, _ := newTestEngine(t, WithClock(func() time.Time { return fixed }))

	got, err := engine.SubmitReport(ctx, report(600, 1, 0, db.SusAsFuck))
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	if got.ReportTime != fixed.Unix() {
		t.Fatalf("report time = %d, want %d", got.ReportTime, fixed.Unix())
	}
}

func TestStorageFailureSurfaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	engine := NewEngine(store, naming.DefaultPolicy)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := engine.SubmitReport(ctx, report(700, 1, 1, db.SusAsFuck)); !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable on report, got %v", err)
	}
	if _, err := engine.SubmitVerification(ctx, verification(700, 1, 1)); !errors.Is(err, apperrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable on verification, got %v", err)
	}
}

func TestConcurrentReportsAndVerification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store := newTestEngine(t)

	const reporters = 20
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		start    = make(chan struct{})
	)
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := engine.SubmitReport(ctx, report(800, int64(i+1), int64(i+1), db.SusAsFuck))
			switch {
			case err == nil:
				accepted.Add(1)
			case !errors.Is(err, apperrors.ErrTargetAlreadyVerified):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if _, err := engine.SubmitVerification(ctx, verification(800, 99, 50)); err != nil {
			t.Errorf("submit verification: %v", err)
		}
	}()
	close(start)
	wg.Wait()

	// every report that got in before the verification is absolved, none after
	if active := activeReports(t, store, 800); len(active) != 0 {
		t.Fatalf("active reports after verification = %d, want 0", len(active))
	}
	all, err := store.ListReports(ctx, db.ReportFilter{TargetID: 800, IncludeAbsolved: true})
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(all) != int(accepted.Load()) {
		t.Fatalf("persisted %d reports, accepted %d", len(all), accepted.Load())
	}
}
