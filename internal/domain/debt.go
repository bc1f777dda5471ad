package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtRecord is one side of a debt pair. Each party owns its own record;
// the two sides share an ID but live under different owner accounts, and a
// correctly synced pair carries negated amounts and equal locked timestamps.
//
// LockedTimestamp is a logical sync point, not a wall-clock fact: it marks
// the last moment both sides agreed. A nil value means the record has never
// been synced and compares as older than any set value.
type DebtRecord struct {
	ID                 string
	OwnerAccountID     string
	CounterpartyUserID string
	CurrencyCode       string
	Amount             decimal.Decimal
	Timestamp          time.Time
	LockedTimestamp    *time.Time
	Note               string
	ReceiptID          *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SameProposal reports whether applying the given values would leave the
// record unchanged. Such writes are suppressed so they cannot disturb the
// locked timestamp.
func (d DebtRecord) SameProposal(amount decimal.Decimal, currencyCode string, timestamp time.Time, note string) bool {
	return d.Amount.Equal(amount) &&
		d.CurrencyCode == currencyCode &&
		d.Timestamp.Equal(timestamp) &&
		d.Note == note
}

// IsSyncedWith reports whether mirror is the agreed counterpart of d: same
// pair id, negated amount, same currency, and matching locked timestamps.
func (d DebtRecord) IsSyncedWith(mirror *DebtRecord) bool {
	if mirror == nil || d.ID != mirror.ID || d.CurrencyCode != mirror.CurrencyCode {
		return false
	}
	if !d.Amount.Equal(mirror.Amount.Neg()) {
		return false
	}
	if d.LockedTimestamp == nil || mirror.LockedTimestamp == nil {
		return d.LockedTimestamp == mirror.LockedTimestamp
	}
	return d.LockedTimestamp.Equal(*mirror.LockedTimestamp)
}
