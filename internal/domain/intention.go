package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncIntention is a staged proposal waiting for the counterparty's explicit
// confirmation. It shares its ID with the debt pair it targets, so at most
// one intention per pair is pending and a newer proposal replaces the older
// one. Amount is stated from the proposer's side; Current snapshots the
// accepting side's record at proposal time, when one existed.
type SyncIntention struct {
	ID                string
	AccountID         string
	ProposerAccountID string
	ProposerUserID    string
	Current           *DebtRecord
	Amount            decimal.Decimal
	CurrencyCode      string
	Timestamp         time.Time
	Note              string
	ReceiptID         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MirrorAmount is the amount the accepting side records: the proposer's
// amount with the sign flipped.
func (i SyncIntention) MirrorAmount() decimal.Decimal {
	return i.Amount.Neg()
}
