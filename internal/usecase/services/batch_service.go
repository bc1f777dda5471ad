package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitledger/debtsync/internal/adapter/repository/repo_interfaces"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
	"github.com/splitledger/debtsync/internal/metrics"
)

var maxAbsAmount = decimal.RequireFromString("1000000000")

type BatchService struct {
	debtRepo    repo_interfaces.DebtRepository
	userRepo    repo_interfaces.UserRepository
	receiptRepo repo_interfaces.ReceiptRepository
	reconciler  *ReconcileService
}

func NewBatchService(
	debtRepo repo_interfaces.DebtRepository,
	userRepo repo_interfaces.UserRepository,
	receiptRepo repo_interfaces.ReceiptRepository,
	reconciler *ReconcileService,
) *BatchService {
	return &BatchService{
		debtRepo:    debtRepo,
		userRepo:    userRepo,
		receiptRepo: receiptRepo,
		reconciler:  reconciler,
	}
}

// ProposeBatch executes a set of related debt creations and updates as one
// client-visible operation. Duplicate natural keys fail the whole batch
// before any storage access; after that, every item validates and fails
// independently, and only the surviving items are committed, in a single
// storage transaction. The returned slice always has the same length and
// positional order as items.
func (s *BatchService) ProposeBatch(ctx context.Context, callerAccountID string, items []domain.BatchItem) ([]domain.BatchOutcome, error) {
	logger.Info("batch service propose batch", logger.Fields{
		"callerAccountId": callerAccountID,
		"itemCount":       len(items),
	})

	if strings.TrimSpace(callerAccountID) == "" {
		return nil, domain.Forbiddenf("caller account is required")
	}
	if len(items) == 0 {
		return []domain.BatchOutcome{}, nil
	}

	if err := detectDuplicateKeys(items); err != nil {
		metrics.BatchRejected.Inc()
		logger.Error("batch service duplicate keys", err, logger.Fields{
			"callerAccountId": callerAccountID,
		})
		return nil, err
	}

	ownerUser, err := s.userRepo.GetByAccountID(ctx, callerAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.Forbiddenf("account %s has no user profile", callerAccountID)
		}
		return nil, fmt.Errorf("resolve caller user: %w", err)
	}

	commitTime := time.Now().UTC()
	outcomes := make([]domain.BatchOutcome, len(items))

	type pendingWrite struct {
		index int
		plan  ReconcilePlan
	}
	var pending []pendingWrite

	for idx, item := range items {
		plan, itemErr := s.planItem(ctx, callerAccountID, ownerUser, item, commitTime)
		if itemErr != nil {
			outcomes[idx] = domain.FailedOutcome(itemErr)
			metrics.BatchItems.WithLabelValues(strings.ToLower(string(domain.KindOf(itemErr)))).Inc()
			continue
		}
		if plan.NoOp {
			outcomes[idx] = domain.SuccessOutcome(plan.Owner)
			metrics.ReconcileOutcomes.WithLabelValues("no_op").Inc()
			metrics.BatchItems.WithLabelValues("ok").Inc()
			continue
		}
		pending = append(pending, pendingWrite{index: idx, plan: plan})
	}

	if len(pending) == 0 {
		return outcomes, nil
	}

	var records []domain.DebtRecord
	var intentions []domain.SyncIntention
	for _, pw := range pending {
		records = append(records, pw.plan.Owner)
		switch {
		case pw.plan.Mirror != nil:
			records = append(records, *pw.plan.Mirror)
			metrics.ReconcileOutcomes.WithLabelValues("auto_accept").Inc()
		case pw.plan.Intention != nil:
			intentions = append(intentions, *pw.plan.Intention)
			metrics.ReconcileOutcomes.WithLabelValues("intention").Inc()
		default:
			metrics.ReconcileOutcomes.WithLabelValues("unmirrored").Inc()
		}
	}

	written, err := s.debtRepo.UpsertMany(ctx, records, intentions)
	if err != nil {
		logger.Error("batch service commit failed", err, logger.Fields{
			"callerAccountId": callerAccountID,
			"recordCount":     len(records),
		})
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	byKey := make(map[string]domain.DebtRecord, len(written))
	for _, rec := range written {
		byKey[rec.OwnerAccountID+"/"+rec.ID] = rec
	}

	for _, pw := range pending {
		rec, ok := byKey[callerAccountID+"/"+pw.plan.Owner.ID]
		if !ok {
			outcomes[pw.index] = domain.FailedOutcome(domain.Internalf("committed write for debt %s has no result row", pw.plan.Owner.ID))
			metrics.BatchItems.WithLabelValues("internal").Inc()
			continue
		}
		outcomes[pw.index] = domain.SuccessOutcome(rec)
		metrics.BatchItems.WithLabelValues("ok").Inc()
	}

	logger.Info("batch service propose batch done", logger.Fields{
		"callerAccountId": callerAccountID,
		"committed":       len(pending),
		"intentions":      len(intentions),
	})
	return outcomes, nil
}

// ListDebts returns the caller's side of every debt against one
// counterparty, most recently dated first.
func (s *BatchService) ListDebts(ctx context.Context, callerAccountID string, counterpartyUserID string) ([]domain.DebtRecord, error) {
	if strings.TrimSpace(callerAccountID) == "" {
		return nil, domain.Forbiddenf("caller account is required")
	}
	if strings.TrimSpace(counterpartyUserID) == "" {
		return nil, domain.PreconditionFailedf("counterpartyUserId is required")
	}

	records, err := s.debtRepo.ListByCounterparty(ctx, callerAccountID, counterpartyUserID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return records, nil
}

func (s *BatchService) planItem(
	ctx context.Context,
	callerAccountID string,
	ownerUser domain.User,
	item domain.BatchItem,
	commitTime time.Time,
) (ReconcilePlan, error) {
	if err := validateItem(item); err != nil {
		return ReconcilePlan{}, err
	}

	pairID := item.DebtID
	counterpartyUserID := item.CounterpartyUserID
	receiptID := item.ReceiptID
	var current *domain.DebtRecord

	if item.IsUpdate() {
		existing, err := s.debtRepo.GetByPairID(ctx, callerAccountID, item.DebtID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return ReconcilePlan{}, domain.NotFoundf("debt %s not found", item.DebtID)
			}
			return ReconcilePlan{}, fmt.Errorf("load debt %s: %w", item.DebtID, err)
		}
		current = &existing
		counterpartyUserID = existing.CounterpartyUserID
		if receiptID == nil {
			receiptID = existing.ReceiptID
		}
	} else {
		pairID = uuid.NewString()
	}

	if counterpartyUserID == ownerUser.ID {
		return ReconcilePlan{}, domain.PreconditionFailedf("cannot record a debt against yourself")
	}

	if receiptID != nil {
		role, err := s.receiptRepo.GetRole(ctx, *receiptID, callerAccountID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return ReconcilePlan{}, domain.NotFoundf("receipt %s not found", *receiptID)
			}
			return ReconcilePlan{}, fmt.Errorf("load receipt role: %w", err)
		}
		if !role.CanEdit() {
			return ReconcilePlan{}, domain.Forbiddenf("account %s cannot edit debts on receipt %s", callerAccountID, *receiptID)
		}

		participates, err := s.receiptRepo.HasParticipant(ctx, *receiptID, counterpartyUserID)
		if err != nil {
			return ReconcilePlan{}, fmt.Errorf("check receipt participant: %w", err)
		}
		if !participates {
			return ReconcilePlan{}, domain.PreconditionFailedf("user %s does not participate in receipt %s", counterpartyUserID, *receiptID)
		}
	}

	counterparty, err := s.userRepo.GetByID(ctx, counterpartyUserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return ReconcilePlan{}, domain.NotFoundf("counterparty user %s not found", counterpartyUserID)
		}
		return ReconcilePlan{}, fmt.Errorf("load counterparty user: %w", err)
	}

	var counterpartyAccountID string
	var mirror *domain.DebtRecord
	if counterparty.Claimed() {
		counterpartyAccountID = *counterparty.AccountID
		m, err := s.debtRepo.GetByPairID(ctx, counterpartyAccountID, pairID)
		if err == nil {
			mirror = &m
		} else if !errors.Is(err, domain.ErrRecordNotFound) {
			return ReconcilePlan{}, fmt.Errorf("load mirror debt %s: %w", pairID, err)
		}
	}

	in := ReconcileInput{
		PairID:                pairID,
		OwnerAccountID:        callerAccountID,
		OwnerUserID:           ownerUser.ID,
		CounterpartyUserID:    counterpartyUserID,
		CounterpartyAccountID: counterpartyAccountID,
		Current:               current,
		Mirror:                mirror,
		Amount:                item.Amount,
		CurrencyCode:          strings.ToUpper(strings.TrimSpace(item.CurrencyCode)),
		Timestamp:             item.Timestamp,
		Note:                  strings.TrimSpace(item.Note),
		ReceiptID:             receiptID,
		CommitTime:            commitTime,
	}
	return s.reconciler.Plan(in), nil
}

// detectDuplicateKeys fails the entire batch when two items share a natural
// key. Duplicates mean a client bug, not a legitimate partial conflict, so
// the error names every duplicated key with its repeat count and nothing is
// written.
func detectDuplicateKeys(items []domain.BatchItem) error {
	counts := make(map[string]int, len(items))
	var order []string
	for _, item := range items {
		key := item.NaturalKey()
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	var parts []string
	for _, key := range order {
		if counts[key] > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", key, counts[key]))
		}
	}
	if len(parts) > 0 {
		return domain.Conflictf("duplicate batch keys: %s", strings.Join(parts, ", "))
	}
	return nil
}

func validateItem(item domain.BatchItem) error {
	if !item.IsUpdate() && strings.TrimSpace(item.CounterpartyUserID) == "" {
		return domain.PreconditionFailedf("counterpartyUserId is required")
	}
	if item.Amount.IsZero() {
		return domain.PreconditionFailedf("amount must not be zero")
	}
	if item.Amount.Abs().GreaterThan(maxAbsAmount) {
		return domain.PreconditionFailedf("amount exceeds the supported bound of %s", maxAbsAmount.String())
	}
	if !isCurrencyCode(strings.ToUpper(strings.TrimSpace(item.CurrencyCode))) {
		return domain.PreconditionFailedf("currencyCode must be a 3-letter code")
	}
	if item.Timestamp.IsZero() {
		return domain.PreconditionFailedf("timestamp is required")
	}
	return nil
}

func isCurrencyCode(value string) bool {
	if len(value) != 3 {
		return false
	}
	for _, ch := range value {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}
