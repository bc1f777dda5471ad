package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/splitledger/debtsync/internal/adapter/repository/repo_interfaces"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
	"github.com/splitledger/debtsync/internal/metrics"
)

type IntentionService struct {
	debtRepo      repo_interfaces.DebtRepository
	intentionRepo repo_interfaces.IntentionRepository
}

func NewIntentionService(
	debtRepo repo_interfaces.DebtRepository,
	intentionRepo repo_interfaces.IntentionRepository,
) *IntentionService {
	return &IntentionService{
		debtRepo:      debtRepo,
		intentionRepo: intentionRepo,
	}
}

func (s *IntentionService) ListPending(ctx context.Context, callerAccountID string) ([]domain.SyncIntention, error) {
	if strings.TrimSpace(callerAccountID) == "" {
		return nil, domain.Forbiddenf("caller account is required")
	}

	intentions, err := s.intentionRepo.ListByAccount(ctx, callerAccountID)
	if err != nil {
		return nil, fmt.Errorf("list pending intentions: %w", err)
	}
	return intentions, nil
}

// Accept confirms a pending intention: the accepting side's mirror is written
// with the proposal's values (amount sign-flipped), the intention is
// consumed, and both sides' locked timestamps converge to the acceptance
// time. Accepting an already-consumed intention is a NotFound, which callers
// treat as "already handled" rather than a hard failure.
//
// The proposal is authoritative once explicitly accepted: even when the
// accepting side's own record moved after the intention was raised, the
// mirror is recomputed from the proposal, not merged. Explicit acceptance
// overrides the staleness guard that gates implicit auto-accept.
func (s *IntentionService) Accept(ctx context.Context, callerAccountID string, intentionID string) (domain.DebtRecord, error) {
	logger.Info("intention service accept", logger.Fields{
		"callerAccountId": callerAccountID,
		"intentionId":     intentionID,
	})

	if strings.TrimSpace(intentionID) == "" {
		return domain.DebtRecord{}, domain.NotFoundf("intention id is required")
	}

	intent, err := s.intentionRepo.GetByID(ctx, intentionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			metrics.IntentionAccepts.WithLabelValues("already_handled").Inc()
			return domain.DebtRecord{}, domain.NotFoundf("intention %s not found", intentionID)
		}
		return domain.DebtRecord{}, fmt.Errorf("load intention %s: %w", intentionID, err)
	}

	if intent.AccountID != callerAccountID {
		metrics.IntentionAccepts.WithLabelValues("forbidden").Inc()
		return domain.DebtRecord{}, domain.Forbiddenf("intention %s does not target account %s", intentionID, callerAccountID)
	}

	acceptedAt := time.Now().UTC()
	mirror := domain.DebtRecord{
		ID:                 intent.ID,
		OwnerAccountID:     callerAccountID,
		CounterpartyUserID: intent.ProposerUserID,
		CurrencyCode:       intent.CurrencyCode,
		Amount:             intent.MirrorAmount(),
		Timestamp:          intent.Timestamp,
		LockedTimestamp:    &acceptedAt,
		Note:               intent.Note,
		ReceiptID:          intent.ReceiptID,
	}
	if intent.Current != nil {
		mirror.CounterpartyUserID = intent.Current.CounterpartyUserID
		mirror.CreatedAt = intent.Current.CreatedAt
	}

	written, err := s.debtRepo.CommitAcceptance(ctx, mirror, intent.ProposerAccountID, acceptedAt)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// Lost a race with a concurrent accept; the ledger is intact.
			metrics.IntentionAccepts.WithLabelValues("already_handled").Inc()
			return domain.DebtRecord{}, domain.NotFoundf("intention %s not found", intentionID)
		}
		metrics.IntentionAccepts.WithLabelValues("error").Inc()
		return domain.DebtRecord{}, fmt.Errorf("commit acceptance of %s: %w", intentionID, err)
	}

	metrics.IntentionAccepts.WithLabelValues("accepted").Inc()
	logger.Info("intention service accepted", logger.Fields{
		"intentionId": intentionID,
		"accountId":   callerAccountID,
		"acceptedAt":  acceptedAt,
	})
	return written, nil
}

// AcceptAll applies Accept to every pending intention for the account. Each
// intention is processed independently; a failure (for example a race with a
// concurrent consume) does not block the others. The outcome slice is
// positionally aligned to the pending list as returned by ListPending.
func (s *IntentionService) AcceptAll(ctx context.Context, callerAccountID string) ([]domain.BatchOutcome, error) {
	intentions, err := s.ListPending(ctx, callerAccountID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.BatchOutcome, len(intentions))
	for idx, intent := range intentions {
		record, acceptErr := s.Accept(ctx, callerAccountID, intent.ID)
		if acceptErr != nil {
			outcomes[idx] = domain.FailedOutcome(acceptErr)
			continue
		}
		outcomes[idx] = domain.SuccessOutcome(record)
	}

	logger.Info("intention service accept all done", logger.Fields{
		"callerAccountId": callerAccountID,
		"total":           len(intentions),
	})
	return outcomes, nil
}
