package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/event"
	"github.com/iamwavecut/cheatlog/internal/i18n"
	"github.com/iamwavecut/cheatlog/internal/query"
)

const timeLayout = "2006-01-02 15:04 UTC"

func formatTime(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).UTC().Format(timeLayout)
}

// renderAlreadyVerified names the target as its verifiers last attested it,
// falling back to the name the reporter typed.
func renderAlreadyVerified(status *db.VerificationStatus, name string, lang string) string {
	first := status.First()
	if first == nil {
		return i18n.Get("This player is verified legit, report not filed", lang)
	}
	if latest := status.LatestName(); latest != "" {
		name = latest
	}
	text := fmt.Sprintf(
		i18n.Get("%s (%d) is verified legit by %d since %s, %d verifications in total. Report not filed.", lang),
		name, status.TargetID, first.VerifierID, formatTime(first.Time), status.Count,
	)
	if alias := status.LatestAlias(); alias != "" {
		text += "\n" + i18n.Get("Alias", lang) + ": " + alias
	}
	return text
}

func renderTargetDetails(d *query.TargetDetails, lang string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, i18n.Get("Reports against %s (%d): %d", lang), d.LatestName, d.TargetID, d.TotalReports)
	sb.WriteString("\n")
	for _, category := range db.Categories {
		stats := d.ReportsByCategory[category]
		if stats == nil || stats.Total == 0 {
			fmt.Fprintf(&sb, "\n%s: 0", CategoryName(category, lang))
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %d", CategoryName(category, lang), stats.Total)
		fmt.Fprintf(&sb, "\n  "+i18n.Get("last by %d at %s", lang), stats.LatestReporterID, formatTime(stats.LatestTime))
		fmt.Fprintf(&sb, "\n  "+i18n.Get("most reports by %d (%d)", lang), stats.TopReporterID, stats.TopReporterCount)
	}
	if d.MostReportedServer != nil {
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, i18n.Get("Most reported on server %d (%d)", lang), d.MostReportedServer.ServerID, d.MostReportedServer.Count)
	}
	if len(d.TopServers) > 0 {
		parts := make([]string, 0, len(d.TopServers))
		for _, s := range d.TopServers {
			parts = append(parts, fmt.Sprintf("%d (%d)", s.ServerID, s.Count))
		}
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("Top servers", lang) + ": " + strings.Join(parts, ", "))
	}
	if d.LastReport != nil && d.LastReport.GetNotes() != "" {
		sb.WriteString("\n")
		sb.WriteString(i18n.Get("Latest notes", lang) + ": " + d.LastReport.GetNotes())
	}
	return sb.String()
}

func renderVerificationDetails(s *db.VerificationSummary, lang string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, i18n.Get("%s (%d) is verified legit", lang), s.LatestName, s.TargetID)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "\n"+i18n.Get("Verified by %d at %s", lang), s.FirstVerifierID, formatTime(s.FirstVerifiedTime))
	fmt.Fprintf(&sb, "\n"+i18n.Get("Verifications: %d", lang), s.VerificationCount)
	if s.Alias != "" {
		sb.WriteString("\n" + i18n.Get("Alias", lang) + ": " + s.Alias)
	}
	if len(s.UniqueVerifierIDs) > 0 {
		ids := make([]string, 0, len(s.UniqueVerifierIDs))
		for _, id := range s.UniqueVerifierIDs {
			ids = append(ids, fmt.Sprint(id))
		}
		sb.WriteString("\n" + i18n.Get("Verifiers", lang) + ": " + strings.Join(ids, ", "))
	}
	if len(s.Notes) > 0 {
		sb.WriteString("\n\n" + i18n.Get("Notes", lang) + ":")
		for _, n := range s.Notes {
			fmt.Fprintf(&sb, "\n- %d, %s: %s", n.VerifierID, formatTime(n.Time), n.Content)
		}
	}
	return sb.String()
}

func renderSummaries(items []*query.TargetSummary, page, pages int, lang string) string {
	if len(items) == 0 {
		return i18n.Get("No reports found", lang)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, i18n.Get("Reported players, page %d of %d", lang), page, pages)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, i18n.Get("%s (%d): %d reports, last %s, most by %d", lang),
			item.LatestName, item.TargetID, item.Count, formatTime(item.LatestTime), item.TopReporterID)
	}
	return sb.String()
}

func renderVerifiedList(items []*db.VerifiedLegit, page, pages int, lang string) string {
	if len(items) == 0 {
		return i18n.Get("No verified players yet", lang)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, i18n.Get("Verified players, page %d of %d", lang), page, pages)
	sb.WriteString("\n")
	for _, v := range items {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, i18n.Get("%s (%d) by %d at %s", lang), v.TargetName, v.TargetID, v.VerifierID, formatTime(v.VerifiedTime))
		if alias := v.GetAlias(); alias != "" {
			sb.WriteString(" [" + alias + "]")
		}
	}
	return sb.String()
}

func renderSearch(items []query.TargetName, lang string) string {
	if len(items) == 0 {
		return i18n.Get("No matching players", lang)
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s (%d)", item.Name, item.TargetID))
	}
	return strings.Join(lines, "\n")
}

func renderReportFiled(e *event.ReportFiled, lang string) string {
	var sb strings.Builder
	sb.WriteString(i18n.Get("New report", lang) + ": " + CategoryName(db.Category(e.Category), lang))
	fmt.Fprintf(&sb, "\n"+i18n.Get("Player: %s (%d)", lang), e.TargetName, e.TargetID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Reporter: %d", lang), e.ReporterID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Server: %d", lang), e.ServerID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Time: %s", lang), formatTime(e.Time))
	if e.Notes != "" {
		sb.WriteString("\n" + i18n.Get("Notes", lang) + ": " + e.Notes)
	}
	return sb.String()
}

func renderTargetVerified(e *event.TargetVerified, lang string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, i18n.Get("Verified legit: %s (%d)", lang), e.TargetName, e.TargetID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Verifier: %d", lang), e.VerifierID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Server: %d", lang), e.ServerID)
	fmt.Fprintf(&sb, "\n"+i18n.Get("Time: %s", lang), formatTime(e.Time))
	if e.Alias != "" {
		sb.WriteString("\n" + i18n.Get("Alias", lang) + ": " + e.Alias)
	}
	if e.Absolved > 0 {
		fmt.Fprintf(&sb, "\n"+i18n.Get("Reports absolved: %d", lang), e.Absolved)
	}
	if e.Notes != "" {
		sb.WriteString("\n" + i18n.Get("Notes", lang) + ": " + e.Notes)
	}
	return sb.String()
}
