package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/cheatlog/internal/bot"
	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
	"github.com/iamwavecut/cheatlog/internal/i18n"
	"github.com/iamwavecut/cheatlog/internal/naming"
	"github.com/iamwavecut/cheatlog/internal/query"
	"github.com/iamwavecut/cheatlog/internal/reconcile"
)

type (
	// Reports serves the ledger commands.
	Reports struct {
		s           bot.Service
		engine      *reconcile.Engine
		query       *query.Service
		policy      naming.Policy
		pageSize    int
		searchLimit int
		now         func() time.Time
	}

	ReportsOption func(*Reports)
)

func WithPageSize(n int) ReportsOption {
	return func(r *Reports) { r.pageSize = n }
}

func WithSearchLimit(n int) ReportsOption {
	return func(r *Reports) { r.searchLimit = n }
}

func WithNamingPolicy(p naming.Policy) ReportsOption {
	return func(r *Reports) { r.policy = p }
}

func NewReports(s bot.Service, engine *reconcile.Engine, q *query.Service, opts ...ReportsOption) *Reports {
	r := &Reports{
		s:           s,
		engine:      engine,
		query:       q,
		policy:      naming.DefaultPolicy,
		pageSize:    DefaultPageSize,
		searchLimit: query.DefaultSearchLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reports) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u == nil || u.Message == nil || chat == nil || user == nil || !u.Message.IsCommand() {
		return true, nil
	}

	msg := u.Message
	command := msg.Command()
	entry := r.getLogEntry().WithFields(log.Fields{
		"command": command,
		"chat_id": chat.ID,
		"user_id": user.ID,
		"user":    bot.GetUN(user),
	})
	lang := r.s.GetLanguage(ctx, chat.ID, user)
	args := msg.CommandArguments()

	var (
		reply string
		err   error
	)
	switch command {
	case "set_reporting_channel":
		reply, err = r.setReportingChannel(ctx, chat, user, args, lang)
	case "report_player", "verify_legit", "list_reports", "reported_details",
		"verified_details", "list_verified", "search", "delete_report":
		var registered bool
		registered, err = r.isRegistered(ctx, chat.ID)
		if err != nil {
			break
		}
		if !registered {
			reply = i18n.Get("This chat is not registered yet, an admin should run /set_reporting_channel first", lang)
			break
		}
		reply, err = r.dispatch(ctx, command, chat, user, args, lang)
	default:
		return true, nil
	}

	if err != nil {
		entry.WithError(err).Debug("command failed")
		reply = r.errorText(err, command, lang)
	}
	if sendErr := r.reply(chat.ID, msg.MessageID, reply); sendErr != nil {
		entry.WithError(sendErr).Warn("cant send reply")
	}
	if err != nil && !isUserError(err) {
		return false, pkgerrors.WithMessage(err, command)
	}
	return false, nil
}

func (r *Reports) dispatch(ctx context.Context, command string, chat *api.Chat, user *api.User, args, lang string) (string, error) {
	switch command {
	case "report_player":
		return r.reportPlayer(ctx, chat, user, args, lang)
	case "verify_legit":
		return r.verifyLegit(ctx, chat, user, args, lang)
	case "list_reports":
		return r.listReports(ctx, args, lang)
	case "reported_details":
		return r.reportedDetails(ctx, args, lang)
	case "verified_details":
		return r.verifiedDetails(ctx, args, lang)
	case "list_verified":
		return r.listVerified(ctx, args, lang)
	case "search":
		return r.search(ctx, args, lang)
	case "delete_report":
		return r.deleteReport(ctx, chat, user, args, lang)
	}
	return "", errUsage
}

func (r *Reports) isRegistered(ctx context.Context, chatID int64) (bool, error) {
	settings, err := r.s.GetDB().GetServerSettings(ctx, chatID)
	if err != nil {
		return false, err
	}
	return settings != nil, nil
}

func (r *Reports) setReportingChannel(ctx context.Context, chat *api.Chat, user *api.User, args, lang string) (string, error) {
	isAdmin, err := r.s.IsChatAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "check admin")
	}
	if !isAdmin {
		return i18n.Get("Only chat admins can do that", lang), nil
	}

	channelID := chat.ID
	if arg := strings.TrimSpace(args); arg != "" {
		if channelID, err = strconv.ParseInt(arg, 10, 64); err != nil {
			return "", errUsage
		}
	}
	if err := r.s.GetDB().SetServerSettings(ctx, &db.ServerSettings{ServerID: chat.ID, ChannelID: channelID}); err != nil {
		return "", err
	}
	return fmt.Sprintf(i18n.Get("Reports will be posted to channel %d", lang), channelID), nil
}

func (r *Reports) reportPlayer(ctx context.Context, chat *api.Chat, user *api.User, args, lang string) (string, error) {
	parsed, err := parseReportArgs(args)
	if err != nil {
		return "", err
	}
	report, err := r.engine.SubmitReport(ctx, reconcile.ReportInput{
		ReporterID: user.ID,
		ServerID:   chat.ID,
		TargetName: parsed.Name,
		TargetID:   parsed.ProfileID,
		Category:   parsed.Category,
		Notes:      parsed.Notes,
		Time:       r.now().Unix(),
	})
	if err != nil {
		var verified *reconcile.AlreadyVerifiedError
		if errors.As(err, &verified) {
			return renderAlreadyVerified(verified.Status, parsed.Name, lang), nil
		}
		return "", err
	}
	return fmt.Sprintf(i18n.Get("Report #%d filed against %s (%d): %s", lang),
		report.ID, report.TargetName, report.TargetID, CategoryName(report.Category, lang)), nil
}

func (r *Reports) verifyLegit(ctx context.Context, chat *api.Chat, user *api.User, args, lang string) (string, error) {
	parsed, err := parseVerifyArgs(args)
	if err != nil {
		return "", err
	}
	result, err := r.engine.SubmitVerification(ctx, reconcile.VerificationInput{
		VerifierID: user.ID,
		ServerID:   chat.ID,
		TargetName: parsed.Name,
		TargetID:   parsed.ProfileID,
		Alias:      parsed.Alias,
		Notes:      parsed.Notes,
		Time:       r.now().Unix(),
	})
	if err != nil {
		return "", err
	}
	v := result.Verification
	if result.First {
		return fmt.Sprintf(i18n.Get("%s (%d) is now verified legit, %d reports absolved", lang),
			v.TargetName, v.TargetID, result.Absolved), nil
	}
	return fmt.Sprintf(i18n.Get("Verification added for %s (%d), %d in total", lang),
		v.TargetName, v.TargetID, result.Count), nil
}

func (r *Reports) listReports(ctx context.Context, args, lang string) (string, error) {
	parsed, err := parseListArgs(args)
	if err != nil {
		return "", err
	}
	summaries, err := r.query.GroupReports(ctx, query.Filter{Category: parsed.Category, ReporterID: parsed.ReporterID})
	if err != nil {
		return "", err
	}
	window, page, pages := Paginate(summaries, parsed.Page, r.pageSize)
	return renderSummaries(window, page, pages, lang), nil
}

func (r *Reports) reportedDetails(ctx context.Context, args, lang string) (string, error) {
	id, err := parseProfileID(args)
	if err != nil {
		return "", err
	}
	details, err := r.query.TargetDetails(ctx, id)
	if err != nil {
		return "", err
	}
	if details == nil {
		return fmt.Sprintf(i18n.Get("No active reports for %d", lang), id), nil
	}
	return renderTargetDetails(details, lang), nil
}

func (r *Reports) verifiedDetails(ctx context.Context, args, lang string) (string, error) {
	id, err := parseProfileID(args)
	if err != nil {
		return "", err
	}
	summary, err := r.query.VerificationDetails(ctx, id)
	if err != nil {
		return "", err
	}
	if summary == nil {
		return fmt.Sprintf(i18n.Get("%d is not verified", lang), id), nil
	}
	return renderVerificationDetails(summary, lang), nil
}

func (r *Reports) listVerified(ctx context.Context, args, lang string) (string, error) {
	page, err := parsePage(args)
	if err != nil {
		return "", err
	}
	verified, err := r.query.ListVerified(ctx)
	if err != nil {
		return "", err
	}
	window, page, pages := Paginate(verified, page, r.pageSize)
	return renderVerifiedList(window, page, pages, lang), nil
}

func (r *Reports) search(ctx context.Context, args, lang string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", errUsage
	}
	found, err := r.query.SearchTargets(ctx, args, r.searchLimit)
	if err != nil {
		return "", err
	}
	return renderSearch(found, lang), nil
}

func (r *Reports) deleteReport(ctx context.Context, chat *api.Chat, user *api.User, args, lang string) (string, error) {
	isAdmin, err := r.s.IsChatAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "check admin")
	}
	if !isAdmin {
		return i18n.Get("Only chat admins can do that", lang), nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "", errUsage
	}
	if err := r.s.GetDB().DeleteReport(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf(i18n.Get("Report #%d deleted", lang), id), nil
}

func (r *Reports) reply(chatID int64, replyTo int, text string) error {
	if text == "" {
		return nil
	}
	msg := api.NewMessage(chatID, text)
	msg.DisableNotification = true
	if replyTo != 0 {
		msg.ReplyParameters.AllowSendingWithoutReply = true
		msg.ReplyParameters.MessageID = replyTo
	}
	_, err := r.s.GetBot().Send(msg)
	return err
}

// isUserError reports errors caused by the input rather than the system.
func isUserError(err error) bool {
	return errors.Is(err, errUsage) || apperrors.IsRejection(err) || errors.Is(err, apperrors.ErrNotFound)
}

func (r *Reports) errorText(err error, command, lang string) string {
	switch {
	case errors.Is(err, errUsage):
		return i18n.Get("Usage", lang) + ": " + usage(command)
	case errors.Is(err, apperrors.ErrInvalidName):
		return fmt.Sprintf(
			i18n.Get("Invalid player name: use %d to %d letters, digits, underscores or hyphens, with at most %d digits in a row", lang),
			r.policy.MinLength, r.policy.MaxLength, r.policy.MaxConsecutiveDigits,
		)
	case errors.Is(err, apperrors.ErrInvalidProfileID):
		return i18n.Get("Invalid profile id, it must be a positive number", lang)
	case errors.Is(err, apperrors.ErrInvalidCategory):
		names := make([]string, 0, len(db.Categories))
		for _, c := range db.Categories {
			names = append(names, c.String())
		}
		return i18n.Get("Unknown category, use one of", lang) + ": " + strings.Join(names, ", ")
	case errors.Is(err, apperrors.ErrNotFound):
		return i18n.Get("Nothing found", lang)
	default:
		return i18n.Get("Something went wrong, nothing was saved. Please try again later", lang)
	}
}

func usage(command string) string {
	switch command {
	case "set_reporting_channel":
		return "/set_reporting_channel [channel_id]"
	case "report_player":
		return "/report_player <category> <name> <profile_id> [notes]"
	case "verify_legit":
		return "/verify_legit <name> <profile_id> [alias|-] [notes]"
	case "list_reports":
		return "/list_reports [all|<category>] [from:<user_id>] [page]"
	case "reported_details":
		return "/reported_details <profile_id>"
	case "verified_details":
		return "/verified_details <profile_id>"
	case "list_verified":
		return "/list_verified [page]"
	case "search":
		return "/search <text>"
	case "delete_report":
		return "/delete_report <id>"
	}
	return "/" + command
}

func (r *Reports) getLogEntry() *log.Entry {
	return log.WithField("context", "reports")
}
