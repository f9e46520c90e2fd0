// Package reconcile decides whether a report may be filed and what happens to
// a target's report history when a verification lands.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
	"github.com/iamwavecut/cheatlog/internal/event"
	"github.com/iamwavecut/cheatlog/internal/naming"
	"github.com/iamwavecut/cheatlog/internal/observability"
)

// Publisher receives events for accepted submissions.
type Publisher interface {
	Publish(event event.Queueable)
}

type (
	ReportInput struct {
		ReporterID int64
		ServerID   int64
		TargetName string
		TargetID   int64
		Category   db.Category
		Notes      string
		// Time is epoch seconds; zero means now.
		Time int64
	}

	VerificationInput struct {
		VerifierID int64
		ServerID   int64
		TargetName string
		TargetID   int64
		Alias      string
		Notes      string
		// Time is epoch seconds; zero means now.
		Time int64
	}

	VerificationResult struct {
		Verification *db.VerifiedLegit
		// First is true when the target was unverified before this call.
		First    bool
		Absolved int64
		Count    int
	}

	Engine struct {
		store     db.Client
		policy    naming.Policy
		publisher Publisher
		metrics   *observability.Metrics
		tracer    trace.Tracer
		now       func() time.Time
		eventTTL  time.Duration
		logger    *log.Entry
	}

	Option func(*Engine)
)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithEventTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.eventTTL = ttl }
}

func NewEngine(store db.Client, policy naming.Policy, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		policy:   policy,
		tracer:   otel.Tracer("github.com/iamwavecut/cheatlog/internal/reconcile"),
		now:      time.Now,
		eventTTL: 10 * time.Minute,
		logger:   log.WithField("context", "reconcile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status is the one place that decides whether a target is verified.
func (e *Engine) Status(ctx context.Context, targetID int64) (*db.VerificationStatus, error) {
	return e.store.IsVerified(ctx, targetID)
}

func (e *Engine) SubmitReport(ctx context.Context, in ReportInput) (*db.CheaterReport, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.SubmitReport", trace.WithAttributes(
		attribute.Int64("target_id", in.TargetID),
		attribute.String("category", in.Category.String()),
	))
	defer span.End()
	defer e.metrics.StartOperation("submit_report")()

	report, err := e.submitReport(ctx, in)
	if err != nil {
		e.fail(span, err)
		return nil, err
	}

	e.metrics.RecordReport(report.Category.String())
	e.logger.WithFields(log.Fields{
		"report_id": report.ID,
		"target_id": report.TargetID,
		"category":  report.Category,
	}).Debug("report filed")
	e.publishReport(report)
	return report, nil
}

func (e *Engine) submitReport(ctx context.Context, in ReportInput) (*db.CheaterReport, error) {
	name := strings.TrimSpace(in.TargetName)
	if !e.policy.Valid(name) {
		return nil, apperrors.ErrInvalidName
	}
	if in.TargetID <= 0 {
		return nil, apperrors.ErrInvalidProfileID
	}
	if !in.Category.Valid() {
		return nil, apperrors.ErrInvalidCategory
	}

	report := &db.CheaterReport{
		ReporterID: in.ReporterID,
		ServerID:   in.ServerID,
		TargetName: name,
		TargetID:   in.TargetID,
		ReportTime: e.timestamp(in.Time),
		Category:   in.Category,
		Absolved:   false,
		Notes:      db.NewNullString(in.Notes),
	}

	var rejectedWith *db.VerificationStatus
	err := e.store.InTx(ctx, func(tx db.Store) error {
		status, err := tx.IsVerified(ctx, in.TargetID)
		if err != nil {
			return err
		}
		if status.IsVerified {
			rejectedWith = status
			return apperrors.ErrTargetAlreadyVerified
		}
		return tx.AddReport(ctx, report)
	})
	if errors.Is(err, apperrors.ErrTargetAlreadyVerified) {
		if rejectedWith == nil {
			// the insert guard fired; read the status that beat us
			if rejectedWith, err = e.Status(ctx, in.TargetID); err != nil {
				return nil, err
			}
		}
		return nil, &AlreadyVerifiedError{Status: rejectedWith}
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Engine) SubmitVerification(ctx context.Context, in VerificationInput) (*VerificationResult, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.SubmitVerification", trace.WithAttributes(
		attribute.Int64("target_id", in.TargetID),
	))
	defer span.End()
	defer e.metrics.StartOperation("submit_verification")()

	result, err := e.submitVerification(ctx, in)
	if err != nil {
		e.fail(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("first", result.First),
		attribute.Int64("absolved", result.Absolved),
	)

	e.metrics.RecordVerification(result.First, result.Absolved)
	e.logger.WithFields(log.Fields{
		"target_id": in.TargetID,
		"first":     result.First,
		"absolved":  result.Absolved,
		"count":     result.Count,
	}).Debug("target verified")
	e.publishVerification(result)
	return result, nil
}

func (e *Engine) submitVerification(ctx context.Context, in VerificationInput) (*VerificationResult, error) {
	name := strings.TrimSpace(in.TargetName)
	if !e.policy.Valid(name) {
		return nil, apperrors.ErrInvalidName
	}
	if in.TargetID <= 0 {
		return nil, apperrors.ErrInvalidProfileID
	}

	verification := &db.VerifiedLegit{
		VerifierID:   in.VerifierID,
		ServerID:     in.ServerID,
		VerifiedTime: e.timestamp(in.Time),
		TargetName:   name,
		TargetID:     in.TargetID,
		Alias:        db.NewNullString(in.Alias),
		Notes:        db.NewNullString(in.Notes),
	}
	result := &VerificationResult{Verification: verification}

	err := e.store.InTx(ctx, func(tx db.Store) error {
		prior, err := tx.IsVerified(ctx, in.TargetID)
		if err != nil {
			return err
		}
		if err := tx.AddVerification(ctx, verification); err != nil {
			return err
		}
		result.First = !prior.IsVerified
		result.Count = prior.Count + 1
		if !result.First {
			return nil
		}
		result.Absolved, err = tx.AbsolveAllForTarget(ctx, in.TargetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) timestamp(t int64) int64 {
	if t != 0 {
		return t
	}
	return e.now().Unix()
}

func (e *Engine) fail(span trace.Span, err error) {
	reason := rejectionReason(err)
	e.metrics.RecordRejection(reason)
	if apperrors.IsRejection(err) {
		span.SetAttributes(attribute.String("rejection", reason))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.WithError(err).Warn("submission failed")
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, apperrors.ErrInvalidCategory):
		return "invalid_category"
	case errors.Is(err, apperrors.ErrInvalidProfileID):
		return "invalid_profile_id"
	case errors.Is(err, apperrors.ErrTargetAlreadyVerified):
		return "already_verified"
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "other"
	}
}

func (e *Engine) publishReport(report *db.CheaterReport) {
	if e.publisher == nil {
		return
	}
	ev := event.NewReportFiled(e.eventTTL)
	ev.ReportID = report.ID
	ev.Category = report.Category.String()
	ev.ReporterID = report.ReporterID
	ev.ServerID = report.ServerID
	ev.Time = report.ReportTime
	ev.TargetName = report.TargetName
	ev.TargetID = report.TargetID
	ev.Notes = report.GetNotes()
	e.publisher.Publish(ev)
}

func (e *Engine) publishVerification(result *VerificationResult) {
	if e.publisher == nil {
		return
	}
	v := result.Verification
	ev := event.NewTargetVerified(e.eventTTL)
	ev.VerifierID = v.VerifierID
	ev.ServerID = v.ServerID
	ev.Time = v.VerifiedTime
	ev.TargetName = v.TargetName
	ev.TargetID = v.TargetID
	ev.Alias = v.GetAlias()
	ev.Notes = v.GetNotes()
	ev.First = result.First
	ev.Count = result.Count
	ev.Absolved = result.Absolved
	e.publisher.Publish(ev)
}
