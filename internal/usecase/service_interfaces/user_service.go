package service_interfaces

import (
	"context"

	"github.com/splitledger/debtsync/internal/domain"
)

type UserService interface {
	CreateUser(ctx context.Context, displayName string) (domain.User, error)
	ClaimUser(ctx context.Context, userID string, accessKey string) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}
