package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/debtsync/internal/domain"
	"github.com/splitledger/debtsync/internal/usecase/services"
)

func newBatchService(store *memStore) *services.BatchService {
	return services.NewBatchService(
		memDebtRepo{s: store},
		memUserRepo{s: store},
		memReceiptRepo{s: store},
		services.NewReconcileService(),
	)
}

func seedPair(store *memStore) (alice domain.User, bob domain.User) {
	alice = store.addUser("user-alice", "acct-alice")
	bob = store.addUser("user-bob", "acct-bob")
	return alice, bob
}

func createItem(counterpartyUserID string, amount string) domain.BatchItem {
	return domain.BatchItem{
		CounterpartyUserID: counterpartyUserID,
		CurrencyCode:       "EUR",
		Amount:             decimal.RequireFromString(amount),
		Timestamp:          time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC),
		Note:               "groceries",
	}
}

func TestProposeBatchCreatesMirroredPair(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	svc := newBatchService(store)

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem(bob.ID, "42.50"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK())

	owner := outcomes[0].Debt
	require.NotNil(t, owner)
	assert.Equal(t, "acct-alice", owner.OwnerAccountID)
	assert.Equal(t, bob.ID, owner.CounterpartyUserID)
	assert.True(t, owner.Amount.Equal(decimal.RequireFromString("42.50")))
	require.NotNil(t, owner.LockedTimestamp)

	mirror, ok := store.debts[debtKey("acct-bob", owner.ID)]
	require.True(t, ok, "counterparty mirror must be written")
	assert.True(t, mirror.Amount.Equal(decimal.RequireFromString("-42.50")))
	assert.Equal(t, "user-alice", mirror.CounterpartyUserID)
	require.NotNil(t, mirror.LockedTimestamp)
	assert.True(t, owner.LockedTimestamp.Equal(*mirror.LockedTimestamp))
	assert.Empty(t, store.intentions)
}

func TestProposeBatchStagesIntentionWhenMirrorMoved(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	svc := newBatchService(store)

	agreedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bobEditedAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	store.addDebt(domain.DebtRecord{
		ID:                 "pair-7",
		OwnerAccountID:     "acct-alice",
		CounterpartyUserID: bob.ID,
		CurrencyCode:       "EUR",
		Amount:             decimal.RequireFromString("30"),
		Timestamp:          agreedAt,
		LockedTimestamp:    &agreedAt,
	})
	store.addDebt(domain.DebtRecord{
		ID:                 "pair-7",
		OwnerAccountID:     "acct-bob",
		CounterpartyUserID: "user-alice",
		CurrencyCode:       "EUR",
		Amount:             decimal.RequireFromString("-35"),
		Timestamp:          bobEditedAt,
		LockedTimestamp:    &bobEditedAt,
	})

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{{
		DebtID:       "pair-7",
		CurrencyCode: "EUR",
		Amount:       decimal.RequireFromString("50"),
		Timestamp:    time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC),
		Note:         "corrected total",
	}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK())

	// Bob's side is untouched; the change waits as an intention.
	mirror := store.debts[debtKey("acct-bob", "pair-7")]
	assert.True(t, mirror.Amount.Equal(decimal.RequireFromString("-35")))
	require.NotNil(t, mirror.LockedTimestamp)
	assert.True(t, mirror.LockedTimestamp.Equal(bobEditedAt))

	intent, ok := store.intentions["pair-7"]
	require.True(t, ok)
	assert.Equal(t, "acct-bob", intent.AccountID)
	assert.Equal(t, "acct-alice", intent.ProposerAccountID)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("50")))

	// Alice's own record is updated and locked at commit time.
	owner := store.debts[debtKey("acct-alice", "pair-7")]
	assert.True(t, owner.Amount.Equal(decimal.RequireFromString("50")))
	require.NotNil(t, owner.LockedTimestamp)
	assert.True(t, owner.LockedTimestamp.After(agreedAt))
}

func TestProposeBatchOutcomesArePositional(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	carol := store.addUser("user-carol", "acct-carol")
	dave := store.addUser("user-dave", "acct-dave")
	svc := newBatchService(store)

	// A distinct natural key that fails validation rather than duplicate
	// detection.
	bad := createItem(dave.ID, "10")
	bad.Amount = decimal.Zero

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem(bob.ID, "10"),
		bad,
		createItem(carol.ID, "5"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].OK())
	require.False(t, outcomes[1].OK())
	assert.Equal(t, domain.KindPreconditionFailed, outcomes[1].Err.Kind)
	assert.True(t, outcomes[2].OK())

	// The two surviving items are committed despite the failure in between.
	assert.Equal(t, 1, store.batchWrites)
	assert.Len(t, store.debts, 4)
}

func TestProposeBatchRejectsDuplicateKeysBeforeAnyWrite(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	store.addDebt(domain.DebtRecord{
		ID:                 "d9",
		OwnerAccountID:     "acct-alice",
		CounterpartyUserID: bob.ID,
		CurrencyCode:       "EUR",
		Amount:             decimal.RequireFromString("12"),
		Timestamp:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	svc := newBatchService(store)

	update := domain.BatchItem{
		DebtID:       "d9",
		CurrencyCode: "EUR",
		Amount:       decimal.RequireFromString("15"),
		Timestamp:    time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC),
	}

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		update, update, createItem(bob.ID, "8"),
	})
	require.Error(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "debt:d9 x2")
	assert.Equal(t, 0, store.batchWrites, "duplicate batches must not reach storage")
}

func TestProposeBatchRejectsDuplicatesAcrossCurrencyCasing(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	svc := newBatchService(store)

	first := createItem(bob.ID, "10")
	second := createItem(bob.ID, "12")
	second.CurrencyCode = " eur "

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		first, second,
	})
	require.Error(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "counterparty:user-bob:EUR x2")
	assert.Equal(t, 0, store.batchWrites)
}

func TestProposeBatchSuppressesNoOpUpdate(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	svc := newBatchService(store)

	lockedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	timestamp := time.Date(2026, 2, 28, 19, 0, 0, 0, time.UTC)
	store.addDebt(domain.DebtRecord{
		ID:                 "pair-3",
		OwnerAccountID:     "acct-alice",
		CounterpartyUserID: bob.ID,
		CurrencyCode:       "EUR",
		Amount:             decimal.RequireFromString("20"),
		Timestamp:          timestamp,
		Note:               "taxi",
		LockedTimestamp:    &lockedAt,
	})

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{{
		DebtID:       "pair-3",
		CurrencyCode: "EUR",
		Amount:       decimal.RequireFromString("20"),
		Timestamp:    timestamp,
		Note:         "taxi",
	}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK())

	assert.Equal(t, 0, store.batchWrites)
	stored := store.debts[debtKey("acct-alice", "pair-3")]
	require.NotNil(t, stored.LockedTimestamp)
	assert.True(t, stored.LockedTimestamp.Equal(lockedAt), "no-op must not disturb the sync point")
}

func TestProposeBatchEmptyInput(t *testing.T) {
	store := newMemStore()
	seedPair(store)
	svc := newBatchService(store)

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestProposeBatchUnknownCounterparty(t *testing.T) {
	store := newMemStore()
	seedPair(store)
	svc := newBatchService(store)

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem("user-ghost", "10"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].OK())
	assert.Equal(t, domain.KindNotFound, outcomes[0].Err.Kind)
}

func TestProposeBatchUnclaimedCounterpartyStaysOneSided(t *testing.T) {
	store := newMemStore()
	store.addUser("user-alice", "acct-alice")
	local := store.addUser("user-dana", "")
	svc := newBatchService(store)

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem(local.ID, "18"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK())

	owner := outcomes[0].Debt
	require.NotNil(t, owner.LockedTimestamp)
	assert.Len(t, store.debts, 1)
	assert.Empty(t, store.intentions)
}

func TestProposeBatchSelfDebtRejected(t *testing.T) {
	store := newMemStore()
	seedPair(store)
	svc := newBatchService(store)

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem("user-alice", "10"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].OK())
	assert.Equal(t, domain.KindPreconditionFailed, outcomes[0].Err.Kind)
}

func TestProposeBatchReceiptPermissions(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	receipt := store.addReceipt("rcpt-1", "acct-owner")
	receipt.roles["acct-alice"] = domain.ReceiptRoleViewer
	receipt.participants[bob.ID] = true
	svc := newBatchService(store)

	receiptID := "rcpt-1"
	item := createItem(bob.ID, "10")
	item.ReceiptID = &receiptID

	outcomes, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{item})
	require.NoError(t, err)
	require.False(t, outcomes[0].OK())
	assert.Equal(t, domain.KindForbidden, outcomes[0].Err.Kind)

	// An editor passes the role gate but still needs the counterparty on
	// the receipt.
	receipt.roles["acct-alice"] = domain.ReceiptRoleEditor
	delete(receipt.participants, bob.ID)

	outcomes, err = svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{item})
	require.NoError(t, err)
	require.False(t, outcomes[0].OK())
	assert.Equal(t, domain.KindPreconditionFailed, outcomes[0].Err.Kind)
}

func TestListDebtsFiltersByCounterparty(t *testing.T) {
	store := newMemStore()
	_, bob := seedPair(store)
	carol := store.addUser("user-carol", "acct-carol")
	svc := newBatchService(store)

	_, err := svc.ProposeBatch(context.Background(), "acct-alice", []domain.BatchItem{
		createItem(bob.ID, "10"),
		createItem(carol.ID, "7"),
	})
	require.NoError(t, err)

	records, err := svc.ListDebts(context.Background(), "acct-alice", bob.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, bob.ID, records[0].CounterpartyUserID)
	assert.Equal(t, "acct-alice", records[0].OwnerAccountID)

	_, err = svc.ListDebts(context.Background(), "acct-alice", " ")
	require.Error(t, err)
	assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
}

func TestProposeBatchRequiresKnownCaller(t *testing.T) {
	store := newMemStore()
	svc := newBatchService(store)

	_, err := svc.ProposeBatch(context.Background(), "acct-unknown", []domain.BatchItem{
		createItem("user-bob", "10"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}
