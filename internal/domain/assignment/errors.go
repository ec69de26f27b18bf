package assignment

import (
	"fmt"

	"fieldwork/internal/pkg/apperror"
)

var (
	ErrJobNotFound       = fmt.Errorf("%w: job not found", apperror.ErrNotFound)
	ErrReportNotFound    = fmt.Errorf("%w: progress report not found", apperror.ErrNotFound)
	ErrExtensionNotFound = fmt.Errorf("%w: extension request not found", apperror.ErrNotFound)
	ErrNotAssigned       = fmt.Errorf("%w: technician is not assigned to this job", apperror.ErrForbidden)
	ErrNotOwner          = fmt.Errorf("%w: only the supervisor who owns this job may do this", apperror.ErrForbidden)
	ErrAlreadyAssigned   = fmt.Errorf("%w: technician is already assigned to this job", apperror.ErrInvalidInput)
	ErrNotReady          = fmt.Errorf("%w: job is not ready for completion", apperror.ErrIllegalTransition)
)

func illegalTransition(from, to JobStatus) error {
	return fmt.Errorf("%w: job cannot move from %s to %s", apperror.ErrIllegalTransition, from, to)
}

func notActive(status JobStatus) error {
	return fmt.Errorf("%w: job is %s, not active", apperror.ErrIllegalTransition, status)
}
