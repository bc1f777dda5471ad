package implementations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
)

type IntentionRepository struct {
	db *sql.DB
}

func NewIntentionRepository(db *sql.DB) *IntentionRepository {
	return &IntentionRepository{db: db}
}

const intentionColumns = `id,
       account_id,
       proposer_account_id,
       proposer_user_id,
       current_snapshot,
       amount,
       currency_code,
       debt_timestamp,
       note,
       receipt_id,
       created_at,
       updated_at`

func (r *IntentionRepository) GetByID(ctx context.Context, id string) (domain.SyncIntention, error) {
	const query = `
SELECT ` + intentionColumns + `
FROM sync_intentions
WHERE id = $1`

	intention, err := scanIntentionRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SyncIntention{}, domain.ErrRecordNotFound
		}
		logger.Error("intention repository get failed", err, logger.Fields{
			"intentionId": id,
		})
		return domain.SyncIntention{}, fmt.Errorf("get intention %s: %w", id, err)
	}
	return intention, nil
}

func (r *IntentionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.SyncIntention, error) {
	// Ordering by the proposed business date is presentation policy: most
	// recently dated debts first.
	const query = `
SELECT ` + intentionColumns + `
FROM sync_intentions
WHERE account_id = $1
ORDER BY debt_timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list intentions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var intentions []domain.SyncIntention
	for rows.Next() {
		intention, err := scanIntentionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intention row: %w", err)
		}
		intentions = append(intentions, intention)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intention rows: %w", err)
	}
	return intentions, nil
}

func scanIntentionRow(row rowScanner) (domain.SyncIntention, error) {
	var (
		intention domain.SyncIntention
		snapshot  []byte
		receiptID sql.NullString
	)

	if err := row.Scan(
		&intention.ID,
		&intention.AccountID,
		&intention.ProposerAccountID,
		&intention.ProposerUserID,
		&snapshot,
		&intention.Amount,
		&intention.CurrencyCode,
		&intention.Timestamp,
		&intention.Note,
		&receiptID,
		&intention.CreatedAt,
		&intention.UpdatedAt,
	); err != nil {
		return domain.SyncIntention{}, err
	}

	if len(snapshot) > 0 {
		var current domain.DebtRecord
		if err := json.Unmarshal(snapshot, &current); err != nil {
			return domain.SyncIntention{}, fmt.Errorf("unmarshal intention snapshot: %w", err)
		}
		intention.Current = &current
	}
	if receiptID.Valid {
		value := receiptID.String
		intention.ReceiptID = &value
	}
	return intention, nil
}
