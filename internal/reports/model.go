// Package reports builds financial statements from aggregated account
// balances. Builders are pure: they take a slice of AccountBalance (or
// journal detail rows) and return a presentation-ready structure, so
// they can be tested without a database.
package reports

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// AccountBalance is one account with its aggregated debit and credit
// totals over the requested range. For as-of reports the opening
// balance is already folded into Debit by the aggregator; Opening is
// carried separately for builders that need it (cash flow, sub-account
// detail).
type AccountBalance struct {
	AccountID  int64                 `json:"account_id"`
	Code       string                `json:"code"`
	Name       string                `json:"name"`
	Type       ledger.AccountType    `json:"type"`
	ParentID   *int64                `json:"parent_id,omitempty"`
	ParentName string                `json:"parent_name,omitempty"`
	Role       *ledger.ReportingRole `json:"reporting_role,omitempty"`
	Opening    decimal.Decimal       `json:"opening"`
	Debit      decimal.Decimal       `json:"debit"`
	Credit     decimal.Decimal       `json:"credit"`
}

// Presented returns the balance signed for the account's normal side:
// positive when the account carries its natural balance.
func (a AccountBalance) Presented() decimal.Decimal {
	return ledger.PresentedBalance(a.Type, a.Debit, a.Credit)
}

// Net returns the debit-perspective balance regardless of type.
func (a AccountBalance) Net() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// IsSub reports whether the account sits under a parent.
func (a AccountBalance) IsSub() bool {
	return a.ParentID != nil
}
