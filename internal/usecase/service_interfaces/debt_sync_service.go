package service_interfaces

import (
	"context"

	"github.com/splitledger/debtsync/internal/domain"
)

type BatchService interface {
	ProposeBatch(ctx context.Context, callerAccountID string, items []domain.BatchItem) ([]domain.BatchOutcome, error)
	ListDebts(ctx context.Context, callerAccountID string, counterpartyUserID string) ([]domain.DebtRecord, error)
}

type IntentionService interface {
	ListPending(ctx context.Context, callerAccountID string) ([]domain.SyncIntention, error)
	Accept(ctx context.Context, callerAccountID string, intentionID string) (domain.DebtRecord, error)
	AcceptAll(ctx context.Context, callerAccountID string) ([]domain.BatchOutcome, error)
}
