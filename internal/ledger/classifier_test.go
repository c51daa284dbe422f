package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalBalance(t *testing.T) {
	require.Equal(t, SideDebit, NormalBalance(AccountTypeAsset))
	require.Equal(t, SideDebit, NormalBalance(AccountTypeExpense))
	require.Equal(t, SideCredit, NormalBalance(AccountTypeLiability))
	require.Equal(t, SideCredit, NormalBalance(AccountTypeEquity))
	require.Equal(t, SideCredit, NormalBalance(AccountTypeIncome))
	require.Equal(t, SideDebit, NormalBalance(AccountType("BANK")))
}

func TestPresentedBalance(t *testing.T) {
	debit := decimal.RequireFromString("600")
	credit := decimal.RequireFromString("150")

	got := PresentedBalance(AccountTypeAsset, debit, credit)
	require.True(t, got.Equal(decimal.RequireFromString("450")), got.String())

	got = PresentedBalance(AccountTypeIncome, debit, credit)
	require.True(t, got.Equal(decimal.RequireFromString("-450")), got.String())

	got = PresentedBalance(AccountTypeLiability, decimal.Zero, credit)
	require.True(t, got.Equal(decimal.RequireFromString("150")), got.String())
}
