package repo_interfaces

import (
	"context"

	"github.com/splitledger/debtsync/internal/domain"
)

// IntentionRepository reads pending intentions. Raising happens inside the
// batch transaction and consumption inside the acceptance transaction, both
// owned by DebtRepository, so this interface stays read-only.
type IntentionRepository interface {
	GetByID(ctx context.Context, id string) (domain.SyncIntention, error)
	// ListByAccount returns pending intentions targeting the account,
	// ordered by proposed business timestamp descending.
	ListByAccount(ctx context.Context, accountID string) ([]domain.SyncIntention, error)
}
