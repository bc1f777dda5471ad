package implementations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
)

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

const debtColumns = `id,
       owner_account_id,
       counterparty_user_id,
       currency_code,
       amount,
       debt_timestamp,
       locked_timestamp,
       note,
       receipt_id,
       created_at,
       updated_at`

const upsertDebtQuery = `
INSERT INTO debts (
	id,
	owner_account_id,
	counterparty_user_id,
	currency_code,
	amount,
	debt_timestamp,
	locked_timestamp,
	note,
	receipt_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (owner_account_id, id) DO UPDATE
SET counterparty_user_id = EXCLUDED.counterparty_user_id,
    currency_code        = EXCLUDED.currency_code,
    amount               = EXCLUDED.amount,
    debt_timestamp       = EXCLUDED.debt_timestamp,
    locked_timestamp     = EXCLUDED.locked_timestamp,
    note                 = EXCLUDED.note,
    receipt_id           = EXCLUDED.receipt_id,
    updated_at           = NOW()
RETURNING ` + debtColumns

const upsertIntentionQuery = `
INSERT INTO sync_intentions (
	id,
	account_id,
	proposer_account_id,
	proposer_user_id,
	current_snapshot,
	amount,
	currency_code,
	debt_timestamp,
	note,
	receipt_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
ON CONFLICT (id) DO UPDATE
SET account_id          = EXCLUDED.account_id,
    proposer_account_id = EXCLUDED.proposer_account_id,
    proposer_user_id    = EXCLUDED.proposer_user_id,
    current_snapshot    = EXCLUDED.current_snapshot,
    amount              = EXCLUDED.amount,
    currency_code       = EXCLUDED.currency_code,
    debt_timestamp      = EXCLUDED.debt_timestamp,
    note                = EXCLUDED.note,
    receipt_id          = EXCLUDED.receipt_id,
    updated_at          = NOW()`

func (r *DebtRepository) GetByPairID(ctx context.Context, ownerAccountID string, pairID string) (domain.DebtRecord, error) {
	const query = `
SELECT ` + debtColumns + `
FROM debts
WHERE owner_account_id = $1 AND id = $2`

	record, err := scanDebtRow(r.db.QueryRowContext(ctx, query, ownerAccountID, pairID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DebtRecord{}, domain.ErrRecordNotFound
		}
		logger.Error("debt repository get by pair id failed", err, logger.Fields{
			"ownerAccountId": ownerAccountID,
			"pairId":         pairID,
		})
		return domain.DebtRecord{}, fmt.Errorf("get debt %s: %w", pairID, err)
	}
	return record, nil
}

func (r *DebtRepository) ListByCounterparty(ctx context.Context, ownerAccountID string, counterpartyUserID string) ([]domain.DebtRecord, error) {
	const query = `
SELECT ` + debtColumns + `
FROM debts
WHERE owner_account_id = $1 AND counterparty_user_id = $2
ORDER BY debt_timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerAccountID, counterpartyUserID)
	if err != nil {
		return nil, fmt.Errorf("list debts by counterparty: %w", err)
	}
	defer rows.Close()

	var records []domain.DebtRecord
	for rows.Next() {
		record, err := scanDebtRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate debt rows: %w", err)
	}
	return records, nil
}

func (r *DebtRepository) UpsertMany(ctx context.Context, records []domain.DebtRecord, intentions []domain.SyncIntention) (written []domain.DebtRecord, err error) {
	logger.Info("debt repository upsert many", logger.Fields{
		"recordCount":    len(records),
		"intentionCount": len(intentions),
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("debt repository begin tx failed", err, nil)
		return nil, fmt.Errorf("begin batch transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	written = make([]domain.DebtRecord, 0, len(records))
	for _, record := range records {
		row := tx.QueryRowContext(ctx, upsertDebtQuery,
			record.ID,
			record.OwnerAccountID,
			record.CounterpartyUserID,
			record.CurrencyCode,
			record.Amount,
			record.Timestamp,
			nullableTime(record.LockedTimestamp),
			record.Note,
			nullableString(record.ReceiptID),
		)
		var result domain.DebtRecord
		if result, err = scanDebtRow(row); err != nil {
			logger.Error("debt repository upsert failed", err, logger.Fields{
				"ownerAccountId": record.OwnerAccountID,
				"pairId":         record.ID,
			})
			return nil, fmt.Errorf("upsert debt %s: %w", record.ID, err)
		}
		written = append(written, result)
	}

	for _, intention := range intentions {
		if err = upsertIntentionTx(ctx, tx, intention); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		logger.Error("debt repository commit tx failed", err, nil)
		return nil, fmt.Errorf("commit batch transaction: %w", err)
	}
	return written, nil
}

func (r *DebtRepository) CommitAcceptance(ctx context.Context, mirror domain.DebtRecord, proposerAccountID string, acceptedAt time.Time) (written domain.DebtRecord, err error) {
	logger.Info("debt repository commit acceptance", logger.Fields{
		"pairId":            mirror.ID,
		"accountId":         mirror.OwnerAccountID,
		"proposerAccountId": proposerAccountID,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("debt repository begin tx failed", err, nil)
		return domain.DebtRecord{}, fmt.Errorf("begin acceptance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Consuming the intention first makes concurrent accepts race on the
	// delete: exactly one transaction sees the row.
	result, err := tx.ExecContext(ctx, `DELETE FROM sync_intentions WHERE id = $1`, mirror.ID)
	if err != nil {
		return domain.DebtRecord{}, fmt.Errorf("consume intention %s: %w", mirror.ID, err)
	}
	rowCount, err := result.RowsAffected()
	if err != nil {
		return domain.DebtRecord{}, fmt.Errorf("read rows affected: %w", err)
	}
	if rowCount == 0 {
		err = domain.ErrRecordNotFound
		return domain.DebtRecord{}, err
	}

	row := tx.QueryRowContext(ctx, upsertDebtQuery,
		mirror.ID,
		mirror.OwnerAccountID,
		mirror.CounterpartyUserID,
		mirror.CurrencyCode,
		mirror.Amount,
		mirror.Timestamp,
		nullableTime(mirror.LockedTimestamp),
		mirror.Note,
		nullableString(mirror.ReceiptID),
	)
	if written, err = scanDebtRow(row); err != nil {
		return domain.DebtRecord{}, fmt.Errorf("upsert mirror debt %s: %w", mirror.ID, err)
	}

	const lockProposerQuery = `
UPDATE debts
SET locked_timestamp = $3,
    updated_at = NOW()
WHERE owner_account_id = $1 AND id = $2`
	if _, err = execRequiredRows(ctx, tx, lockProposerQuery, proposerAccountID, mirror.ID, acceptedAt); err != nil {
		return domain.DebtRecord{}, err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("debt repository commit tx failed", err, nil)
		return domain.DebtRecord{}, fmt.Errorf("commit acceptance transaction: %w", err)
	}
	return written, nil
}

func upsertIntentionTx(ctx context.Context, tx *sql.Tx, intention domain.SyncIntention) error {
	var snapshot any
	if intention.Current != nil {
		raw, err := json.Marshal(intention.Current)
		if err != nil {
			return fmt.Errorf("marshal intention snapshot %s: %w", intention.ID, err)
		}
		snapshot = raw
	}

	if _, err := tx.ExecContext(ctx, upsertIntentionQuery,
		intention.ID,
		intention.AccountID,
		intention.ProposerAccountID,
		intention.ProposerUserID,
		snapshot,
		intention.Amount,
		intention.CurrencyCode,
		intention.Timestamp,
		intention.Note,
		nullableString(intention.ReceiptID),
	); err != nil {
		return fmt.Errorf("upsert intention %s: %w", intention.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebtRow(row rowScanner) (domain.DebtRecord, error) {
	var (
		record          domain.DebtRecord
		lockedTimestamp sql.NullTime
		receiptID       sql.NullString
	)

	if err := row.Scan(
		&record.ID,
		&record.OwnerAccountID,
		&record.CounterpartyUserID,
		&record.CurrencyCode,
		&record.Amount,
		&record.Timestamp,
		&lockedTimestamp,
		&record.Note,
		&receiptID,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return domain.DebtRecord{}, err
	}

	if lockedTimestamp.Valid {
		value := lockedTimestamp.Time
		record.LockedTimestamp = &value
	}
	if receiptID.Valid {
		value := receiptID.String
		record.ReceiptID = &value
	}
	return record, nil
}

func execRequiredRows(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute transaction statement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	if rows == 0 {
		return 0, errors.New("transaction posting failed: record not found")
	}
	return rows, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
