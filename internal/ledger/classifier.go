package ledger

import "github.com/shopspring/decimal"

// Side identifies which column an account's normal balance sits on.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// NormalBalance returns the normal-balance side for an account type.
// Asset and Expense accounts are debit-normal; Liability, Equity and
// Income are credit-normal. Unrecognized types default to debit-normal.
func NormalBalance(t AccountType) Side {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeIncome:
		return SideCredit
	default:
		return SideDebit
	}
}

// PresentedBalance converts raw debit/credit totals into the signed
// balance presented for the account type: debit minus credit for
// debit-normal types, credit minus debit otherwise.
func PresentedBalance(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if NormalBalance(t) == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}
