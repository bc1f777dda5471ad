package repo_interfaces

import (
	"context"

	"github.com/splitledger/debtsync/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByAccountID(ctx context.Context, accountID string) (domain.User, error)
	// ClaimAccount links a local-only user to an account and stores the
	// bcrypt hash of its access key. Fails with a conflict when the user is
	// already claimed.
	ClaimAccount(ctx context.Context, userID string, accountID string, accessKeyHash string) (domain.User, error)
}
