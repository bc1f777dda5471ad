package services_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/splitledger/debtsync/internal/domain"
)

// memStore holds the shared state behind the in-memory repositories so a
// test can wire every service against one consistent world. Debt rows are
// keyed by ownerAccountID/pairID, matching the storage layout.
type memStore struct {
	debts      map[string]domain.DebtRecord
	intentions map[string]domain.SyncIntention
	users      map[string]domain.User
	receipts   map[string]*memReceipt
	// batchWrites counts UpsertMany calls so tests can assert the
	// zero-writes contract of duplicate detection.
	batchWrites int
}

type memReceipt struct {
	ownerAccountID string
	roles          map[string]domain.ReceiptRole
	participants   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		debts:      make(map[string]domain.DebtRecord),
		intentions: make(map[string]domain.SyncIntention),
		users:      make(map[string]domain.User),
		receipts:   make(map[string]*memReceipt),
	}
}

func debtKey(ownerAccountID, pairID string) string {
	return ownerAccountID + "/" + pairID
}

func (s *memStore) addUser(id string, accountID string) domain.User {
	user := domain.User{ID: id, DisplayName: "user " + id, CreatedAt: time.Now()}
	if accountID != "" {
		user.AccountID = &accountID
	}
	s.users[id] = user
	return user
}

func (s *memStore) addDebt(record domain.DebtRecord) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = record.CreatedAt
	s.debts[debtKey(record.OwnerAccountID, record.ID)] = record
}

func (s *memStore) addIntention(intention domain.SyncIntention) {
	if intention.CreatedAt.IsZero() {
		intention.CreatedAt = time.Now()
	}
	s.intentions[intention.ID] = intention
}

func (s *memStore) addReceipt(id string, ownerAccountID string) *memReceipt {
	receipt := &memReceipt{
		ownerAccountID: ownerAccountID,
		roles:          make(map[string]domain.ReceiptRole),
		participants:   make(map[string]bool),
	}
	s.receipts[id] = receipt
	return receipt
}

type memDebtRepo struct{ s *memStore }

func (r memDebtRepo) GetByPairID(_ context.Context, ownerAccountID string, pairID string) (domain.DebtRecord, error) {
	record, ok := r.s.debts[debtKey(ownerAccountID, pairID)]
	if !ok {
		return domain.DebtRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (r memDebtRepo) ListByCounterparty(_ context.Context, ownerAccountID string, counterpartyUserID string) ([]domain.DebtRecord, error) {
	var records []domain.DebtRecord
	for _, record := range r.s.debts {
		if record.OwnerAccountID == ownerAccountID && record.CounterpartyUserID == counterpartyUserID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r memDebtRepo) UpsertMany(_ context.Context, records []domain.DebtRecord, intentions []domain.SyncIntention) ([]domain.DebtRecord, error) {
	r.s.batchWrites++
	now := time.Now().UTC()

	written := make([]domain.DebtRecord, 0, len(records))
	for _, record := range records {
		key := debtKey(record.OwnerAccountID, record.ID)
		if existing, ok := r.s.debts[key]; ok {
			record.CreatedAt = existing.CreatedAt
		} else if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		r.s.debts[key] = record
		written = append(written, record)
	}

	for _, intention := range intentions {
		if existing, ok := r.s.intentions[intention.ID]; ok {
			intention.CreatedAt = existing.CreatedAt
		} else if intention.CreatedAt.IsZero() {
			intention.CreatedAt = now
		}
		intention.UpdatedAt = now
		r.s.intentions[intention.ID] = intention
	}
	return written, nil
}

func (r memDebtRepo) CommitAcceptance(_ context.Context, mirror domain.DebtRecord, proposerAccountID string, acceptedAt time.Time) (domain.DebtRecord, error) {
	if _, ok := r.s.intentions[mirror.ID]; !ok {
		return domain.DebtRecord{}, domain.ErrRecordNotFound
	}

	proposerKey := debtKey(proposerAccountID, mirror.ID)
	proposer, ok := r.s.debts[proposerKey]
	if !ok {
		return domain.DebtRecord{}, fmt.Errorf("transaction posting failed: record not found")
	}

	delete(r.s.intentions, mirror.ID)

	key := debtKey(mirror.OwnerAccountID, mirror.ID)
	now := time.Now().UTC()
	if existing, ok := r.s.debts[key]; ok {
		mirror.CreatedAt = existing.CreatedAt
	} else if mirror.CreatedAt.IsZero() {
		mirror.CreatedAt = now
	}
	mirror.UpdatedAt = now
	r.s.debts[key] = mirror

	lockedAt := acceptedAt
	proposer.LockedTimestamp = &lockedAt
	proposer.UpdatedAt = now
	r.s.debts[proposerKey] = proposer

	return mirror, nil
}

type memIntentionRepo struct{ s *memStore }

func (r memIntentionRepo) GetByID(_ context.Context, id string) (domain.SyncIntention, error) {
	intention, ok := r.s.intentions[id]
	if !ok {
		return domain.SyncIntention{}, domain.ErrRecordNotFound
	}
	return intention, nil
}

func (r memIntentionRepo) ListByAccount(_ context.Context, accountID string) ([]domain.SyncIntention, error) {
	var intentions []domain.SyncIntention
	for _, intention := range r.s.intentions {
		if intention.AccountID == accountID {
			intentions = append(intentions, intention)
		}
	}
	sort.Slice(intentions, func(i, j int) bool {
		return intentions[i].Timestamp.After(intentions[j].Timestamp)
	})
	return intentions, nil
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = user
	return user, nil
}

func (r memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrRecordNotFound
	}
	return user, nil
}

func (r memUserRepo) GetByAccountID(_ context.Context, accountID string) (domain.User, error) {
	for _, user := range r.s.users {
		if user.AccountID != nil && *user.AccountID == accountID {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrRecordNotFound
}

func (r memUserRepo) ClaimAccount(_ context.Context, userID string, accountID string, accessKeyHash string) (domain.User, error) {
	user, ok := r.s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrRecordNotFound
	}
	if user.AccountID != nil {
		return domain.User{}, domain.Conflictf("user %s is already claimed or missing", userID)
	}
	user.AccountID = &accountID
	user.AccessKeyHash = &accessKeyHash
	user.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = user
	return user, nil
}

type memReceiptRepo struct{ s *memStore }

func (r memReceiptRepo) GetRole(_ context.Context, receiptID string, accountID string) (domain.ReceiptRole, error) {
	receipt, ok := r.s.receipts[receiptID]
	if !ok {
		return domain.ReceiptRoleNone, domain.ErrRecordNotFound
	}
	if receipt.ownerAccountID == accountID {
		return domain.ReceiptRoleOwner, nil
	}
	if role, ok := receipt.roles[accountID]; ok {
		return role, nil
	}
	return domain.ReceiptRoleNone, nil
}

func (r memReceiptRepo) HasParticipant(_ context.Context, receiptID string, userID string) (bool, error) {
	receipt, ok := r.s.receipts[receiptID]
	if !ok {
		return false, nil
	}
	return receipt.participants[userID], nil
}
