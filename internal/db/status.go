package db

// NewVerificationStatus builds the status of targetID from its rows, which
// must already be ordered by verified time ascending.
func NewVerificationStatus(targetID int64, rows []*VerifiedLegit) *VerificationStatus {
	status := &VerificationStatus{
		TargetID:      targetID,
		IsVerified:    len(rows) > 0,
		Count:         len(rows),
		Verifications: make([]Verification, 0, len(rows)),
	}
	for _, row := range rows {
		status.Verifications = append(status.Verifications, Verification{
			VerifierID: row.VerifierID,
			Time:       row.VerifiedTime,
			TargetName: row.TargetName,
			Alias:      row.GetAlias(),
		})
	}
	return status
}

// Summarize aggregates the rows of one target, ordered by verified time
// ascending. Every row with notes yields its own Note.
func Summarize(targetID int64, rows []*VerifiedLegit) *VerificationSummary {
	summary := &VerificationSummary{
		TargetID:          targetID,
		VerificationCount: len(rows),
		UniqueVerifierIDs: []int64{},
		Notes:             []Note{},
	}
	if len(rows) == 0 {
		return summary
	}

	summary.FirstVerifiedTime = rows[0].VerifiedTime
	summary.FirstVerifierID = rows[0].VerifierID

	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		summary.LatestName = row.TargetName
		if alias := row.GetAlias(); alias != "" {
			summary.Alias = alias
		}
		if _, ok := seen[row.VerifierID]; !ok {
			seen[row.VerifierID] = struct{}{}
			summary.UniqueVerifierIDs = append(summary.UniqueVerifierIDs, row.VerifierID)
		}
		if notes := row.GetNotes(); notes != "" {
			summary.Notes = append(summary.Notes, Note{
				VerifierID: row.VerifierID,
				Time:       row.VerifiedTime,
				Content:    notes,
			})
		}
	}
	return summary
}
