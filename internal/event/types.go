package event

import (
	"time"

	"github.com/pborman/uuid"
)

const (
	TypeReportFiled    = "report_filed"
	TypeTargetVerified = "target_verified"
)

// ReportFiled is published after a report is persisted.
type ReportFiled struct {
	*Base
	CorrelationID string
	ReportID      int64
	Category      string
	ReporterID    int64
	ServerID      int64
	Time          int64
	TargetName    string
	TargetID      int64
	Notes         string
}

// TargetVerified is published after a verification is persisted.
type TargetVerified struct {
	*Base
	CorrelationID string
	VerifierID    int64
	ServerID      int64
	Time          int64
	TargetName    string
	TargetID      int64
	Alias         string
	Notes         string
	First         bool
	Count         int
	Absolved      int64
}

func NewReportFiled(ttl time.Duration) *ReportFiled {
	return &ReportFiled{
		Base:          CreateBase(TypeReportFiled, time.Now().Add(ttl)),
		CorrelationID: uuid.New(),
	}
}

func NewTargetVerified(ttl time.Duration) *TargetVerified {
	return &TargetVerified{
		Base:          CreateBase(TypeTargetVerified, time.Now().Add(ttl)),
		CorrelationID: uuid.New(),
	}
}
