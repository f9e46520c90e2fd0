package db

import "context"

type ReportStore interface {
	AddReport(ctx context.Context, report *CheaterReport) error
	GetReport(ctx context.Context, id int64) (*CheaterReport, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]*CheaterReport, error)
	AbsolveAllForTarget(ctx context.Context, targetID int64) (int64, error)
	DeleteReport(ctx context.Context, id int64) error
}

type VerificationStore interface {
	AddVerification(ctx context.Context, verification *VerifiedLegit) error
	IsVerified(ctx context.Context, targetID int64) (*VerificationStatus, error)
	ListVerifications(ctx context.Context) ([]*VerifiedLegit, error)
	ListTargetVerifications(ctx context.Context, targetID int64) ([]*VerifiedLegit, error)
	GetVerificationSummary(ctx context.Context, targetID int64) (*VerificationSummary, error)
}

type SettingsStore interface {
	GetServerSettings(ctx context.Context, serverID int64) (*ServerSettings, error)
	ListServerSettings(ctx context.Context) ([]*ServerSettings, error)
	SetServerSettings(ctx context.Context, settings *ServerSettings) error
	DeleteServerSettings(ctx context.Context, serverID int64) error
}

type Store interface {
	ReportStore
	VerificationStore
	SettingsStore
}

// Client is a Store that can also run a function inside one transaction.
// Everything fn does through its Store argument commits or rolls back as a
// unit.
type Client interface {
	Store
	InTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
