package tool

import (
	"fmt"
	"log/slog"
)

// RunWithRollback performs a local insert followed by a dependent remote
// call, undoing the insert if the remote call fails. The local store must
// never retain a record for an operation the remote system never started.
//
// No transaction spans the two systems; the guarantee is eventual
// consistency via rollback, not atomicity. A failed rollback is logged for
// operator follow-up but does not change the outcome — the primary failure
// already dominates.
//
// Insert failures come back wrapped in ErrLocalWrite; remote failures are
// returned as given, so callers can classify the two differently.
func RunWithRollback(
	logger *slog.Logger,
	insert func() (int64, error),
	remote func(localID int64) error,
	rollback func(localID int64) error,
) (int64, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id, err := insert()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}

	if err := remote(id); err != nil {
		if rbErr := rollback(id); rbErr != nil {
			logger.Warn("rollback failed after remote error, local record may be orphaned",
				"local_id", id,
				"remote_error", err,
				"rollback_error", rbErr,
			)
		}
		return 0, err
	}

	return id, nil
}
