// Package query turns the live, non-absolved part of the ledger into ranked
// summaries. Nothing here writes.
package query

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/observability"
)

const (
	DefaultSearchLimit = 25
	topServersLimit    = 3
)

// StatusSource decides whether a target is verified.
type StatusSource interface {
	Status(ctx context.Context, targetID int64) (*db.VerificationStatus, error)
}

type (
	Service struct {
		store   db.Store
		status  StatusSource
		metrics *observability.Metrics
	}

	CategoryStats struct {
		Total            int
		LatestReporterID int64
		LatestTime       int64
		TopReporterID    int64
		TopReporterCount int
	}

	ServerCount struct {
		ServerID int64
		Count    int
	}

	TargetDetails struct {
		TargetID           int64
		LatestName         string
		TotalReports       int
		ReportsByCategory  map[db.Category]*CategoryStats
		MostReportedServer *ServerCount
		TopServers         []ServerCount
		LastReport         *db.CheaterReport
	}

	// Filter selects reports for GroupReports. Zero values mean "any".
	Filter struct {
		Category   db.Category
		ReporterID int64
	}

	TargetSummary struct {
		TargetID         int64
		Count            int
		LatestName       string
		LatestTime       int64
		TopReporterID    int64
		TopReporterCount int
	}

	TargetName struct {
		TargetID int64
		Name     string
	}
)

func NewService(store db.Store, status StatusSource, metrics *observability.Metrics) *Service {
	return &Service{store: store, status: status, metrics: metrics}
}

// TargetDetails returns nil when the target has no active reports or is
// verified; verified targets belong to VerificationDetails.
func (s *Service) TargetDetails(ctx context.Context, targetID int64) (*TargetDetails, error) {
	defer s.metrics.StartOperation("target_details")()
	if targetID <= 0 {
		return nil, nil
	}

	status, err := s.status.Status(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if status.IsVerified {
		return nil, nil
	}

	reports, err := s.store.ListReports(ctx, db.ReportFilter{TargetID: targetID})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return buildDetails(targetID, reports), nil
}

// buildDetails expects reports ordered by time ascending.
func buildDetails(targetID int64, reports []*db.CheaterReport) *TargetDetails {
	details := &TargetDetails{
		TargetID:          targetID,
		TotalReports:      len(reports),
		ReportsByCategory: make(map[db.Category]*CategoryStats, len(db.Categories)),
	}
	reporters := make(map[db.Category]*counter, len(db.Categories))
	for _, category := range db.Categories {
		details.ReportsByCategory[category] = &CategoryStats{}
		reporters[category] = newCounter()
	}
	servers := newCounter()

	for _, r := range reports {
		stats, ok := details.ReportsByCategory[r.Category]
		if !ok {
			continue
		}
		stats.Total++
		if r.ReportTime >= stats.LatestTime {
			stats.LatestTime = r.ReportTime
			stats.LatestReporterID = r.ReporterID
		}
		reporters[r.Category].add(r.ReporterID)
		servers.add(r.ServerID)
		details.LastReport = r
		details.LatestName = r.TargetName
	}

	for category, stats := range details.ReportsByCategory {
		stats.TopReporterID, stats.TopReporterCount = reporters[category].top()
	}

	ranked := servers.ranked()
	if len(ranked) > 0 {
		most := ranked[0]
		details.MostReportedServer = &most
	}
	if len(ranked) > topServersLimit {
		ranked = ranked[:topServersLimit]
	}
	details.TopServers = ranked
	return details
}

// VerificationDetails returns nil for a target nobody has verified.
func (s *Service) VerificationDetails(ctx context.Context, targetID int64) (*db.VerificationSummary, error) {
	defer s.metrics.StartOperation("verification_details")()
	if targetID <= 0 {
		return nil, nil
	}

	summary, err := s.store.GetVerificationSummary(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if summary.VerificationCount == 0 {
		return nil, nil
	}
	return summary, nil
}

// GroupReports groups active reports by target, most reported first.
func (s *Service) GroupReports(ctx context.Context, filter Filter) ([]*TargetSummary, error) {
	defer s.metrics.StartOperation("group_reports")()

	reports, err := s.store.ListReports(ctx, db.ReportFilter{
		Category:   filter.Category,
		ReporterID: filter.ReporterID,
	})
	if err != nil {
		return nil, err
	}
	return groupByTarget(reports), nil
}

func groupByTarget(reports []*db.CheaterReport) []*TargetSummary {
	byTarget := map[int64]*TargetSummary{}
	reporters := map[int64]*counter{}
	for _, r := range reports {
		summary, ok := byTarget[r.TargetID]
		if !ok {
			summary = &TargetSummary{TargetID: r.TargetID}
			byTarget[r.TargetID] = summary
			reporters[r.TargetID] = newCounter()
		}
		summary.Count++
		if r.ReportTime >= summary.LatestTime {
			summary.LatestTime = r.ReportTime
			summary.LatestName = r.TargetName
		}
		reporters[r.TargetID].add(r.ReporterID)
	}

	summaries := make([]*TargetSummary, 0, len(byTarget))
	for id, summary := range byTarget {
		summary.TopReporterID, summary.TopReporterCount = reporters[id].top()
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.LatestTime != b.LatestTime {
			return a.LatestTime > b.LatestTime
		}
		return a.TargetID < b.TargetID
	})
	return summaries
}

// ListVerified returns every verification row, newest first.
func (s *Service) ListVerified(ctx context.Context) ([]*db.VerifiedLegit, error) {
	defer s.metrics.StartOperation("list_verified")()
	return s.store.ListVerifications(ctx)
}

// SearchTargets matches needle against the latest name or the id of every
// target with active reports. The most recently reported come first.
func (s *Service) SearchTargets(ctx context.Context, needle string, limit int) ([]TargetName, error) {
	defer s.metrics.StartOperation("search_targets")()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	reports, err := s.store.ListReports(ctx, db.ReportFilter{})
	if err != nil {
		return nil, err
	}

	needle = strings.ToLower(strings.TrimSpace(needle))
	matches := make([]TargetName, 0, limit)
	for _, summary := range groupByLatest(reports) {
		if needle != "" &&
			!strings.Contains(strings.ToLower(summary.LatestName), needle) &&
			!strings.Contains(strconv.FormatInt(summary.TargetID, 10), needle) {
			continue
		}
		matches = append(matches, TargetName{TargetID: summary.TargetID, Name: summary.LatestName})
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func groupByLatest(reports []*db.CheaterReport) []*TargetSummary {
	summaries := groupByTarget(reports)
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LatestTime != summaries[j].LatestTime {
			return summaries[i].LatestTime > summaries[j].LatestTime
		}
		return summaries[i].TargetID < summaries[j].TargetID
	})
	return summaries
}
