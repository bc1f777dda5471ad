package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/splitledger/debtsync/internal/domain"
)

type BatchItemRequest struct {
	DebtID             string          `json:"debtId,omitempty"`
	CounterpartyUserID string          `json:"counterpartyUserId,omitempty"`
	CurrencyCode       string          `json:"currencyCode"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
	Note               string          `json:"note"`
	ReceiptID          *string         `json:"receiptId,omitempty"`
}

type ProposeBatchRequest struct {
	Items []BatchItemRequest `json:"items"`
}

func (r ProposeBatchRequest) Validate() error {
	var errs []string

	if len(r.Items) == 0 {
		errs = append(errs, "items must not be empty")
	}
	for idx, item := range r.Items {
		if strings.TrimSpace(item.DebtID) == "" && strings.TrimSpace(item.CounterpartyUserID) == "" {
			errs = append(errs, fmt.Sprintf("items[%d]: debtId or counterpartyUserId is required", idx))
		}
		if strings.TrimSpace(item.CurrencyCode) == "" {
			errs = append(errs, fmt.Sprintf("items[%d]: currencyCode is required", idx))
		}
		if item.Amount.IsZero() {
			errs = append(errs, fmt.Sprintf("items[%d]: amount must not be zero", idx))
		}
		if item.Timestamp.IsZero() {
			errs = append(errs, fmt.Sprintf("items[%d]: timestamp is required", idx))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r ProposeBatchRequest) ToDomain() []domain.BatchItem {
	items := make([]domain.BatchItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, domain.BatchItem{
			DebtID:             strings.TrimSpace(item.DebtID),
			CounterpartyUserID: strings.TrimSpace(item.CounterpartyUserID),
			CurrencyCode:       strings.ToUpper(strings.TrimSpace(item.CurrencyCode)),
			Amount:             item.Amount,
			Timestamp:          item.Timestamp,
			Note:               strings.TrimSpace(item.Note),
			ReceiptID:          item.ReceiptID,
		})
	}
	return items
}

type DebtResponse struct {
	ID                 string          `json:"id"`
	OwnerAccountID     string          `json:"ownerAccountId"`
	CounterpartyUserID string          `json:"counterpartyUserId"`
	CurrencyCode       string          `json:"currencyCode"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
	LockedTimestamp    *time.Time      `json:"lockedTimestamp,omitempty"`
	Note               string          `json:"note"`
	ReceiptID          *string         `json:"receiptId,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func DebtResponseFrom(record domain.DebtRecord) DebtResponse {
	return DebtResponse{
		ID:                 record.ID,
		OwnerAccountID:     record.OwnerAccountID,
		CounterpartyUserID: record.CounterpartyUserID,
		CurrencyCode:       record.CurrencyCode,
		Amount:             record.Amount,
		Timestamp:          record.Timestamp,
		LockedTimestamp:    record.LockedTimestamp,
		Note:               record.Note,
		ReceiptID:          record.ReceiptID,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

type IntentionResponse struct {
	ID             string          `json:"id"`
	ProposerUserID string          `json:"proposerUserId"`
	Current        *DebtResponse   `json:"current,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currencyCode"`
	Timestamp      time.Time       `json:"timestamp"`
	Note           string          `json:"note"`
	ReceiptID      *string         `json:"receiptId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func IntentionResponseFrom(intention domain.SyncIntention) IntentionResponse {
	response := IntentionResponse{
		ID:             intention.ID,
		ProposerUserID: intention.ProposerUserID,
		Amount:         intention.Amount,
		CurrencyCode:   intention.CurrencyCode,
		Timestamp:      intention.Timestamp,
		Note:           intention.Note,
		ReceiptID:      intention.ReceiptID,
		CreatedAt:      intention.CreatedAt,
	}
	if intention.Current != nil {
		current := DebtResponseFrom(*intention.Current)
		response.Current = &current
	}
	return response
}

type AcceptIntentionRequest struct {
	IntentionID string `json:"intentionId"`
}

func (r AcceptIntentionRequest) Validate() error {
	if strings.TrimSpace(r.IntentionID) == "" {
		return errors.New("intentionId is required")
	}
	return nil
}
