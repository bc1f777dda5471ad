package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/splitledger/debtsync/internal/domain"
)

// ReconcileInput is the full snapshot the engine needs to plan one debt
// change. Both sides are passed explicitly; the engine holds no state and
// touches no storage.
type ReconcileInput struct {
	PairID                string
	OwnerAccountID        string
	OwnerUserID           string
	CounterpartyUserID    string
	CounterpartyAccountID string // empty when the user has no linked account
	Current               *domain.DebtRecord
	Mirror                *domain.DebtRecord
	Amount                decimal.Decimal
	CurrencyCode          string
	Timestamp             time.Time
	Note                  string
	ReceiptID             *string
	CommitTime            time.Time
}

// ReconcilePlan is what one committed change does to a debt pair: the
// proposer's own record, plus exactly one of an auto-accepted mirror write,
// a raised intention, or nothing (unmirrored debt or no-op).
type ReconcilePlan struct {
	Owner     domain.DebtRecord
	Mirror    *domain.DebtRecord
	Intention *domain.SyncIntention
	NoOp      bool
}

type ReconcileService struct{}

func NewReconcileService() *ReconcileService {
	return &ReconcileService{}
}

// Plan decides whether the counterparty side can be overwritten immediately
// or must be staged as an intention.
//
// Auto-accept is allowed only when the counterparty has not moved since the
// last agreed sync point: its mirror is absent, never synced (nil locked
// timestamp, which compares as oldest), or locked no later than the
// proposer's own previous locked timestamp. A mirror locked strictly after
// that point carries an unsynced counterparty edit and must not be silently
// clobbered.
func (s *ReconcileService) Plan(in ReconcileInput) ReconcilePlan {
	if in.Current != nil && in.Current.SameProposal(in.Amount, in.CurrencyCode, in.Timestamp, in.Note) {
		return ReconcilePlan{Owner: *in.Current, NoOp: true}
	}

	lockedAt := in.CommitTime
	owner := domain.DebtRecord{
		ID:                 in.PairID,
		OwnerAccountID:     in.OwnerAccountID,
		CounterpartyUserID: in.CounterpartyUserID,
		CurrencyCode:       in.CurrencyCode,
		Amount:             in.Amount,
		Timestamp:          in.Timestamp,
		LockedTimestamp:    &lockedAt,
		Note:               in.Note,
		ReceiptID:          in.ReceiptID,
	}
	if in.Current != nil {
		owner.CreatedAt = in.Current.CreatedAt
	}

	plan := ReconcilePlan{Owner: owner}

	if in.CounterpartyAccountID == "" {
		// Unclaimed counterparty: no ledger to mirror into, and nobody to
		// accept an intention. The debt stays one-sided.
		return plan
	}

	if s.autoAcceptable(in.Current, in.Mirror) {
		mirror := domain.DebtRecord{
			ID:                 in.PairID,
			OwnerAccountID:     in.CounterpartyAccountID,
			CounterpartyUserID: in.OwnerUserID,
			CurrencyCode:       in.CurrencyCode,
			Amount:             in.Amount.Neg(),
			Timestamp:          in.Timestamp,
			LockedTimestamp:    &lockedAt,
			Note:               in.Note,
			ReceiptID:          in.ReceiptID,
		}
		if in.Mirror != nil {
			mirror.CreatedAt = in.Mirror.CreatedAt
		}
		plan.Mirror = &mirror
		return plan
	}

	plan.Intention = &domain.SyncIntention{
		ID:                in.PairID,
		AccountID:         in.CounterpartyAccountID,
		ProposerAccountID: in.OwnerAccountID,
		ProposerUserID:    in.OwnerUserID,
		Current:           in.Mirror,
		Amount:            in.Amount,
		CurrencyCode:      in.CurrencyCode,
		Timestamp:         in.Timestamp,
		Note:              in.Note,
		ReceiptID:         in.ReceiptID,
	}
	return plan
}

func (s *ReconcileService) autoAcceptable(current *domain.DebtRecord, mirror *domain.DebtRecord) bool {
	if mirror == nil || mirror.LockedTimestamp == nil {
		return true
	}

	// The comparison is always against the proposer's own prior recorded
	// sync point, never a wall clock across machines.
	var lastAgreed time.Time
	if current != nil && current.LockedTimestamp != nil {
		lastAgreed = *current.LockedTimestamp
	}
	return !mirror.LockedTimestamp.After(lastAgreed)
}
