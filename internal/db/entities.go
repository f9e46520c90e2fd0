package db

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
)

type (
	// Category is one of the fixed report kinds.
	Category string

	ServerSettings struct {
		ServerID  int64 `db:"server_id"`
		ChannelID int64 `db:"channel_id"`
	}

	CheaterReport struct {
		ID         int64          `db:"id"`
		ReporterID int64          `db:"reporter_user_id"`
		ServerID   int64          `db:"server_id"`
		TargetName string         `db:"cheater_game_name"`
		TargetID   int64          `db:"cheater_profile_id"`
		ReportTime int64          `db:"report_time"`
		Category   Category       `db:"report_type"`
		Absolved   bool           `db:"absolved"`
		Notes      sql.NullString `db:"notes"`
	}

	VerifiedLegit struct {
		ID           int64          `db:"id"`
		VerifierID   int64          `db:"verifier_user_id"`
		ServerID     int64          `db:"server_id"`
		VerifiedTime int64          `db:"verified_time"`
		TargetName   string         `db:"tarkov_game_name"`
		TargetID     int64          `db:"tarkov_profile_id"`
		Alias        sql.NullString `db:"twitch_name"`
		Notes        sql.NullString `db:"notes"`
	}

	// ReportFilter narrows ListReports. Zero values mean "any".
	ReportFilter struct {
		Category        Category
		ReporterID      int64
		TargetID        int64
		IncludeAbsolved bool
	}

	Verification struct {
		VerifierID int64
		Time       int64
		TargetName string
		Alias      string
	}

	// VerificationStatus is the derived per-target state. Verifications are
	// ordered by time ascending, so index 0 is the first verifier.
	VerificationStatus struct {
		TargetID      int64
		IsVerified    bool
		Count         int
		Verifications []Verification
	}

	Note struct {
		VerifierID int64
		Time       int64
		Content    string
	}

	VerificationSummary struct {
		TargetID          int64
		VerificationCount int
		FirstVerifiedTime int64
		FirstVerifierID   int64
		LatestName        string
		Alias             string
		UniqueVerifierIDs []int64
		Notes             []Note
	}
)

const (
	KilledByCheater Category = "killed_by_cheater"
	KilledACheater  Category = "killed_a_cheater"
	SusAsFuck       Category = "sus_as_fuck"
	StreamSniper    Category = "stream_sniper"
	WordOfMouth     Category = "word_of_mouth"
)

// Categories lists every category in display order.
var Categories = []Category{
	KilledByCheater,
	KilledACheater,
	SusAsFuck,
	StreamSniper,
	WordOfMouth,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts a category value in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errors.Wrapf(apperrors.ErrInvalidCategory, "%q", s)
	}
	return c, nil
}

// NewNullString maps blank input to NULL.
func NewNullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// GetNotes Returns report notes or empty string
func (r *CheaterReport) GetNotes() string {
	if r == nil || !r.Notes.Valid {
		return ""
	}
	return r.Notes.String
}

// GetAlias Returns verification alias or empty string
func (v *VerifiedLegit) GetAlias() string {
	if v == nil || !v.Alias.Valid {
		return ""
	}
	return v.Alias.String
}

// GetNotes Returns verification notes or empty string
func (v *VerifiedLegit) GetNotes() string {
	if v == nil || !v.Notes.Valid {
		return ""
	}
	return v.Notes.String
}

// First returns the earliest verification, or nil when unverified.
func (s *VerificationStatus) First() *Verification {
	if s == nil || len(s.Verifications) == 0 {
		return nil
	}
	return &s.Verifications[0]
}

// LatestName returns the most recently attested name.
func (s *VerificationStatus) LatestName() string {
	if s == nil || len(s.Verifications) == 0 {
		return ""
	}
	return s.Verifications[len(s.Verifications)-1].TargetName
}

// LatestAlias returns the most recent non-empty alias.
func (s *VerificationStatus) LatestAlias() string {
	if s == nil {
		return ""
	}
	for i := len(s.Verifications) - 1; i >= 0; i-- {
		if s.Verifications[i].Alias != "" {
			return s.Verifications[i].Alias
		}
	}
	return ""
}
