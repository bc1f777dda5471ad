package models

import (
	"errors"
	"strings"
	"time"

	"github.com/splitledger/debtsync/internal/domain"
)

type CreateUserRequest struct {
	DisplayName string `json:"displayName"`
}

func (r CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.DisplayName) == "" {
		return errors.New("displayName is required")
	}
	return nil
}

type ClaimUserRequest struct {
	UserID    string `json:"userId"`
	AccessKey string `json:"accessKey"`
}

func (r ClaimUserRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.UserID) == "" {
		errs = append(errs, "userId is required")
	}
	if len(strings.TrimSpace(r.AccessKey)) < 8 {
		errs = append(errs, "accessKey must be at least 8 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type UserResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	AccountID   *string   `json:"accountId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func UserResponseFrom(user domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		AccountID:   user.AccountID,
		CreatedAt:   user.CreatedAt,
	}
}
