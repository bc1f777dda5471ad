package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id,
       display_name,
       account_id,
       access_key_hash,
       created_at,
       updated_at`

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	logger.Info("user repository create", logger.Fields{
		"userId":      user.ID,
		"displayName": user.DisplayName,
	})

	const query = `
INSERT INTO users (id, display_name)
VALUES ($1, $2)
RETURNING ` + userColumns

	created, err := scanUserRow(r.db.QueryRowContext(ctx, query, user.ID, user.DisplayName))
	if err != nil {
		logger.Error("user repository create failed", err, logger.Fields{
			"userId": user.ID,
		})
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1`

	user, err := scanUserRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrRecordNotFound
		}
		return domain.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

func (r *UserRepository) GetByAccountID(ctx context.Context, accountID string) (domain.User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE account_id = $1`

	user, err := scanUserRow(r.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrRecordNotFound
		}
		return domain.User{}, fmt.Errorf("get user by account %s: %w", accountID, err)
	}
	return user, nil
}

func (r *UserRepository) ClaimAccount(ctx context.Context, userID string, accountID string, accessKeyHash string) (domain.User, error) {
	logger.Info("user repository claim account", logger.Fields{
		"userId":    userID,
		"accountId": accountID,
	})

	const query = `
UPDATE users
SET account_id = $2,
    access_key_hash = $3,
    updated_at = NOW()
WHERE id = $1 AND account_id IS NULL
RETURNING ` + userColumns

	user, err := scanUserRow(r.db.QueryRowContext(ctx, query, userID, accountID, accessKeyHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.Conflictf("user %s is already claimed or missing", userID)
		}
		if isUniqueViolation(err) {
			return domain.User{}, domain.Conflictf("account %s is already linked to a user", accountID)
		}
		logger.Error("user repository claim account failed", err, logger.Fields{
			"userId": userID,
		})
		return domain.User{}, fmt.Errorf("claim account: %w", err)
	}
	return user, nil
}

func scanUserRow(row rowScanner) (domain.User, error) {
	var (
		user          domain.User
		accountID     sql.NullString
		accessKeyHash sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&accountID,
		&accessKeyHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return domain.User{}, err
	}

	if accountID.Valid {
		value := accountID.String
		user.AccountID = &value
	}
	if accessKeyHash.Valid {
		value := accessKeyHash.String
		user.AccessKeyHash = &value
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
