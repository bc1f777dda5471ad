package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/splitledger/debtsync/internal/adapter/repository/repo_interfaces"
	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repo_interfaces.UserRepository
}

func NewUserService(userRepo repo_interfaces.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUser records a local-only user: a debt counterparty with no account
// of their own yet. Debts against such a user stay one-sided until the user
// claims an account.
func (s *UserService) CreateUser(ctx context.Context, displayName string) (domain.User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return domain.User{}, domain.PreconditionFailedf("displayName is required")
	}

	user := domain.User{
		ID:          uuid.NewString(),
		DisplayName: name,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		logger.Error("user service create user failed", err, logger.Fields{
			"displayName": name,
		})
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	logger.Info("user service create user success", logger.Fields{
		"userId":      created.ID,
		"displayName": created.DisplayName,
	})
	return created, nil
}

// ClaimUser links a local-only user to a fresh account and stores the access
// key hash. From this point debts against the user gain a mirrored ledger.
func (s *UserService) ClaimUser(ctx context.Context, userID string, accessKey string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, domain.PreconditionFailedf("userId is required")
	}
	if len(strings.TrimSpace(accessKey)) < 8 {
		return domain.User{}, domain.PreconditionFailedf("accessKey must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundf("user %s not found", userID)
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if user.Claimed() {
		return domain.User{}, domain.Conflictf("user %s is already claimed", userID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(accessKey)), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("user service hash access key failed", err, nil)
		return domain.User{}, fmt.Errorf("hash access key: %w", err)
	}

	claimed, err := s.userRepo.ClaimAccount(ctx, userID, uuid.NewString(), string(hash))
	if err != nil {
		logger.Error("user service claim account failed", err, logger.Fields{
			"userId": userID,
		})
		return domain.User{}, fmt.Errorf("claim account: %w", err)
	}

	logger.Info("user service claim account success", logger.Fields{
		"userId":    claimed.ID,
		"accountId": claimed.AccountID,
	})
	return claimed, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return domain.User{}, domain.NotFoundf("user id is required")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundf("user %s not found", id)
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
