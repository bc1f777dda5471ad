package repo_interfaces

import (
	"context"

	"github.com/splitledger/debtsync/internal/domain"
)

type ReceiptRepository interface {
	// GetRole returns the caller's role on a receipt, ReceiptRoleNone when
	// the account does not participate. The reconciliation core only
	// enforces the role outcome; the policy behind it lives upstream.
	GetRole(ctx context.Context, receiptID string, accountID string) (domain.ReceiptRole, error)
	HasParticipant(ctx context.Context, receiptID string, userID string) (bool, error)
}
