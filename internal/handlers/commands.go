package handlers

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
)

var errUsage = errors.New("wrong command usage")

type (
	reportArgs struct {
		Category  db.Category
		Name      string
		ProfileID int64
		Notes     string
	}

	verifyArgs struct {
		Name      string
		ProfileID int64
		Alias     string
		Notes     string
	}

	listArgs struct {
		Category   db.Category
		ReporterID int64
		Page       int
	}
)

// parseProfileID accepts a positive decimal game profile id.
func parseProfileID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(apperrors.ErrInvalidProfileID, "%q", s)
	}
	return id, nil
}

// splitArgs returns the first n fields of s and the untouched remainder.
func splitArgs(s string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	rest := strings.TrimSpace(s)
	for len(fields) < n && rest != "" {
		i := strings.IndexAny(rest, " \t\n")
		if i < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:i])
		rest = strings.TrimSpace(rest[i:])
	}
	return fields, rest
}

// /report_player <category> <name> <profile_id> [notes...]
func parseReportArgs(s string) (*reportArgs, error) {
	fields, notes := splitArgs(s, 3)
	if len(fields) < 3 {
		return nil, errUsage
	}
	category, err := db.ParseCategory(fields[0])
	if err != nil {
		return nil, err
	}
	id, err := parseProfileID(fields[2])
	if err != nil {
		return nil, err
	}
	return &reportArgs{Category: category, Name: fields[1], ProfileID: id, Notes: notes}, nil
}

// /verify_legit <name> <profile_id> [alias|-] [notes...]
func parseVerifyArgs(s string) (*verifyArgs, error) {
	fields, notes := splitArgs(s, 3)
	if len(fields) < 2 {
		return nil, errUsage
	}
	id, err := parseProfileID(fields[1])
	if err != nil {
		return nil, err
	}
	args := &verifyArgs{Name: fields[0], ProfileID: id, Notes: notes}
	if len(fields) == 3 && fields[2] != "-" {
		args.Alias = fields[2]
	}
	return args, nil
}

// /list_reports [all|<category>] [from:<user_id>] [page]
func parseListArgs(s string) (*listArgs, error) {
	args := &listArgs{Page: 1}
	for _, field := range strings.Fields(s) {
		switch {
		case strings.EqualFold(field, "all"):
			args.Category = ""
		case strings.HasPrefix(strings.ToLower(field), "from:"):
			id, err := strconv.ParseInt(field[len("from:"):], 10, 64)
			if err != nil || id <= 0 {
				return nil, errUsage
			}
			args.ReporterID = id
		default:
			if page, err := strconv.Atoi(field); err == nil {
				args.Page = page
				continue
			}
			category, err := db.ParseCategory(field)
			if err != nil {
				return nil, err
			}
			args.Category = category
		}
	}
	return args, nil
}

// parsePage reads an optional page number.
func parsePage(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(s)
	if err != nil {
		return 0, errUsage
	}
	return page, nil
}
