package repo_interfaces

import (
	"context"
	"time"

	"github.com/splitledger/debtsync/internal/domain"
)

type DebtRepository interface {
	// GetByPairID returns the given account's side of a debt pair.
	GetByPairID(ctx context.Context, ownerAccountID string, pairID string) (domain.DebtRecord, error)
	ListByCounterparty(ctx context.Context, ownerAccountID string, counterpartyUserID string) ([]domain.DebtRecord, error)
	// UpsertMany writes the committed slice of a batch in one transaction:
	// debt rows (both proposer sides and auto-accepted mirrors) plus any
	// intentions raised for non-auto-acceptable changes. All rows become
	// visible together or not at all.
	UpsertMany(ctx context.Context, records []domain.DebtRecord, intentions []domain.SyncIntention) ([]domain.DebtRecord, error)
	// CommitAcceptance applies one intention acceptance atomically: delete
	// the intention row (ErrRecordNotFound when already consumed), upsert
	// the accepting side's mirror, and move the proposer side's locked
	// timestamp to acceptedAt.
	CommitAcceptance(ctx context.Context, mirror domain.DebtRecord, proposerAccountID string, acceptedAt time.Time) (domain.DebtRecord, error)
}
