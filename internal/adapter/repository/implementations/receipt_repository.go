package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/splitledger/debtsync/internal/domain"
)

type ReceiptRepository struct {
	db *sql.DB
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) GetRole(ctx context.Context, receiptID string, accountID string) (domain.ReceiptRole, error) {
	const ownerQuery = `
SELECT owner_account_id
FROM receipts
WHERE id = $1`

	var ownerAccountID string
	if err := r.db.QueryRowContext(ctx, ownerQuery, receiptID).Scan(&ownerAccountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReceiptRoleNone, domain.ErrRecordNotFound
		}
		return domain.ReceiptRoleNone, fmt.Errorf("get receipt %s: %w", receiptID, err)
	}
	if ownerAccountID == accountID {
		return domain.ReceiptRoleOwner, nil
	}

	const roleQuery = `
SELECT rp.role
FROM receipt_participants rp
JOIN users u ON u.id = rp.user_id
WHERE rp.receipt_id = $1 AND u.account_id = $2`

	var role string
	if err := r.db.QueryRowContext(ctx, roleQuery, receiptID, accountID).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReceiptRoleNone, nil
		}
		return domain.ReceiptRoleNone, fmt.Errorf("get receipt role: %w", err)
	}
	return domain.ReceiptRole(role), nil
}

func (r *ReceiptRepository) HasParticipant(ctx context.Context, receiptID string, userID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1
	FROM receipt_participants
	WHERE receipt_id = $1 AND user_id = $2
)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, receiptID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check receipt participant: %w", err)
	}
	return exists, nil
}
