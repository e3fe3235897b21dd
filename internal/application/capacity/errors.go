package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tourops/backend/internal/domain/shared"
)

// ErrSyncInProgress is returned when a tenant-wide sync is requested while another is running
var ErrSyncInProgress = shared.NewDomainError("SYNC_IN_PROGRESS", "A capacity synchronization is already running")

// asTransactionError maps an expired operation deadline to a retryable concurrency conflict.
// Domain errors and other failures pass through unchanged.
func asTransactionError(ctx context.Context, err error) error {
	if err == nil || shared.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", shared.ErrConcurrencyConflict.WithDetail("reason", "timeout"), err)
	}
	return err
}
