package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// IncomeStatementLine is one income or expense account over the period.
type IncomeStatementLine struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// IncomeStatementSection groups lines of one nature with their total.
type IncomeStatementSection struct {
	Label string                `json:"label"`
	Lines []IncomeStatementLine `json:"lines"`
	Total decimal.Decimal       `json:"total"`
}

// IncomeStatement is the profit and loss statement for a period. It
// shows section totals only; the net result is folded into the balance
// sheet and cash flow statements instead.
type IncomeStatement struct {
	Income  IncomeStatementSection `json:"income"`
	Expense IncomeStatementSection `json:"expense"`
}

// BuildIncomeStatement aggregates period balances into income and
// expense sections. Line amounts are floored at zero: an account whose
// activity runs against its nature shows as zero rather than negative.
func BuildIncomeStatement(accounts []AccountBalance) IncomeStatement {
	income := IncomeStatementSection{Label: "Income", Total: decimal.Zero}
	expense := IncomeStatementSection{Label: "Expense", Total: decimal.Zero}

	for _, a := range accounts {
		var amount decimal.Decimal
		switch a.Type {
		case ledger.AccountTypeIncome:
			amount = a.Credit.Sub(a.Debit)
			if amount.IsNegative() {
				amount = decimal.Zero
			}
			if amount.IsZero() {
				continue
			}
			income.Lines = append(income.Lines, IncomeStatementLine{AccountID: a.AccountID, Code: a.Code, Name: a.Name, Amount: amount})
			income.Total = income.Total.Add(amount)
		case ledger.AccountTypeExpense:
			amount = a.Debit.Sub(a.Credit)
			if amount.IsNegative() {
				amount = decimal.Zero
			}
			if amount.IsZero() {
				continue
			}
			expense.Lines = append(expense.Lines, IncomeStatementLine{AccountID: a.AccountID, Code: a.Code, Name: a.Name, Amount: amount})
			expense.Total = expense.Total.Add(amount)
		}
	}

	sort.Slice(income.Lines, func(i, j int) bool { return income.Lines[i].Code < income.Lines[j].Code })
	sort.Slice(expense.Lines, func(i, j int) bool { return expense.Lines[i].Code < expense.Lines[j].Code })

	return IncomeStatement{
		Income:  income,
		Expense: expense,
	}
}

// PeriodNetIncome is the unfloored Income minus Expense result over
// period balances. Unlike the income statement sections, accounts
// running against their nature subtract here, so the balance sheet and
// cash flow fold in the true net result.
func PeriodNetIncome(accounts []AccountBalance) decimal.Decimal {
	net := decimal.Zero
	for _, a := range accounts {
		switch a.Type {
		case ledger.AccountTypeIncome:
			net = net.Add(a.Credit.Sub(a.Debit))
		case ledger.AccountTypeExpense:
			net = net.Sub(a.Debit.Sub(a.Credit))
		}
	}
	return net
}
