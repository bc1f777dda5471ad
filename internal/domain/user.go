package domain

import "time"

// User is a debt counterparty. A user starts local-only (created by whoever
// recorded the debt) and may later be claimed into a real account; until then
// AccountID is nil and debts against the user have no mirror.
type User struct {
	ID            string
	DisplayName   string
	AccountID     *string
	AccessKeyHash *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Claimed reports whether the user is linked to an account that can hold a
// mirrored ledger.
func (u User) Claimed() bool { return u.AccountID != nil }

type ReceiptRole string

const (
	ReceiptRoleOwner  ReceiptRole = "OWNER"
	ReceiptRoleEditor ReceiptRole = "EDITOR"
	ReceiptRoleViewer ReceiptRole = "VIEWER"
	ReceiptRoleNone   ReceiptRole = "NONE"
)

// CanEdit reports whether the role permits mutating debts under the receipt.
func (r ReceiptRole) CanEdit() bool {
	return r == ReceiptRoleOwner || r == ReceiptRoleEditor
}
