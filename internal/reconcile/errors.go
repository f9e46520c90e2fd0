package reconcile

import (
	"fmt"

	"github.com/iamwavecut/cheatlog/internal/db"
	apperrors "github.com/iamwavecut/cheatlog/internal/errors"
)

// AlreadyVerifiedError rejects a report against a verified target and
// carries the verification state for the reporter to see.
type AlreadyVerifiedError struct {
	Status *db.VerificationStatus
}

func (e *AlreadyVerifiedError) Error() string {
	if e.Status == nil {
		return apperrors.ErrTargetAlreadyVerified.Error()
	}
	return fmt.Sprintf("%s: target %d has %d verifications", apperrors.ErrTargetAlreadyVerified, e.Status.TargetID, e.Status.Count)
}

func (e *AlreadyVerifiedError) Unwrap() error {
	return apperrors.ErrTargetAlreadyVerified
}
