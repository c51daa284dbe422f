package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestService(store *memoryStore) *Service {
	svc := NewService(store, NewAggregator(store), nil, nil)
	svc.WithNow(func() time.Time { return date("2024-06-30") })
	return svc
}

func guardFixture() *memoryStore {
	return newMemoryStore(
		Account{ID: 1, Code: "1000", Name: "Checking", Type: AccountTypeAsset, ReportingRole: ptr(RoleBank), OpeningBalance: amount("1000"), Balance: amount("1000"), IsActive: true},
		Account{ID: 2, Code: "6000", Name: "Utilities", Type: AccountTypeExpense, OpeningBalance: decimal.Zero, Balance: decimal.Zero, IsActive: true},
		Account{ID: 3, Code: "6100", Name: "Rent", Type: AccountTypeExpense, OpeningBalance: decimal.Zero, Balance: decimal.Zero, IsActive: true},
	)
}

func TestCreateAccountParentGuards(t *testing.T) {
	store := guardFixture()
	svc := newTestService(store)
	ctx := context.Background()

	// Parent type must match the sub-account type.
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Code: "6001", Name: "Water", Type: AccountTypeAsset, ParentID: ptr(int64(2))})
	require.ErrorIs(t, err, ErrParentTypeMismatch)

	sub, err := svc.CreateAccount(ctx, CreateAccountInput{Code: "6001", Name: "Water", Type: AccountTypeExpense, ParentID: ptr(int64(2))})
	require.NoError(t, err)
	require.True(t, sub.IsSubAccount())

	// Nesting stops at one level.
	_, err = svc.CreateAccount(ctx, CreateAccountInput{Code: "6002", Name: "Sewer", Type: AccountTypeExpense, ParentID: ptr(sub.ID)})
	require.ErrorIs(t, err, ErrParentDepth)
}

func TestUpdateAccountGuards(t *testing.T) {
	store := guardFixture()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.UpdateAccount(ctx, UpdateAccountInput{ID: 2, Code: "6000", Name: "Utilities", Type: AccountTypeAsset, IsActive: true})
	require.ErrorIs(t, err, ErrTypeImmutable)

	_, err = svc.UpdateAccount(ctx, UpdateAccountInput{ID: 2, Code: "6000", Name: "Utilities", ParentID: ptr(int64(2)), IsActive: true})
	require.ErrorIs(t, err, ErrOwnParent)

	updated, err := svc.UpdateAccount(ctx, UpdateAccountInput{ID: 2, Code: "6000", Name: "Utilities & Power", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "Utilities & Power", updated.Name)
}

func TestDeleteAccountGuards(t *testing.T) {
	store := guardFixture()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountInput{Code: "6001", Name: "Water", Type: AccountTypeExpense, ParentID: ptr(int64(2))})
	require.NoError(t, err)

	err = svc.DeleteAccount(ctx, 2, 0)
	require.ErrorIs(t, err, ErrAccountHasChildren)

	store.journals = append(store.journals, Journal{ID: 99, Date: date("2024-01-15"), Amount: amount("50"), DebitAccountID: 3, CreditAccountID: 1})
	err = svc.DeleteAccount(ctx, 3, 0)
	require.ErrorIs(t, err, ErrAccountHasPostings)

	_, err = svc.CreateAccount(ctx, CreateAccountInput{Code: "6200", Name: "Postage", Type: AccountTypeExpense})
	require.NoError(t, err)
	var postageID int64
	for id, a := range store.accounts {
		if a.Code == "6200" {
			postageID = id
		}
	}
	require.NoError(t, svc.DeleteAccount(ctx, postageID, 0))
}

func TestGetBalanceLookup(t *testing.T) {
	store := guardFixture()
	svc := newTestService(store)

	lookup, err := svc.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "1000", lookup.Balance.String())
	require.Equal(t, "1000", lookup.AccountCode)
	require.Equal(t, "Checking", lookup.AccountName)

	_, err = svc.GetBalance(context.Background(), 404)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestReconcileBalancesRepairsDrift(t *testing.T) {
	store := guardFixture()
	svc := newTestService(store)
	ctx := context.Background()

	// One posting: $200 from Checking into Utilities.
	store.journals = append(store.journals, Journal{ID: 10, Date: date("2024-02-01"), Amount: amount("200"), DebitAccountID: 2, CreditAccountID: 1})

	// Simulate drift: the cached columns were never updated.
	report, err := svc.ReconcileBalances(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, report.Checked)
	require.Equal(t, 2, report.Repaired)

	require.Equal(t, "800", store.accounts[1].Balance.String())
	require.Equal(t, "200", store.accounts[2].Balance.String())

	// Second pass finds nothing to repair.
	report, err = svc.ReconcileBalances(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, report.Repaired)
}
