package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// TrialBalanceRow is one account line. The net balance lands in a
// single column, debit or credit, whichever side exceeds the other.
// Sub-accounts are nested under their parent row.
type TrialBalanceRow struct {
	AccountID int64              `json:"account_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Debit     decimal.Decimal    `json:"debit"`
	Credit    decimal.Decimal    `json:"credit"`
	Subs      []TrialBalanceRow  `json:"subs,omitempty"`
}

// TrialBalanceSection groups rows of one account type with its two
// column totals.
type TrialBalanceSection struct {
	Type        ledger.AccountType `json:"type"`
	Rows        []TrialBalanceRow  `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// TrialBalance is the full statement. TotalDebit and TotalCredit sum
// the presented columns independently; Difference is their gap and is
// reported, never hidden, so an out-of-balance ledger is visible.
type TrialBalance struct {
	Sections    []TrialBalanceSection `json:"sections"`
	TotalDebit  decimal.Decimal       `json:"total_debit"`
	TotalCredit decimal.Decimal       `json:"total_credit"`
	Difference  decimal.Decimal       `json:"difference"`
}

var sectionOrder = []ledger.AccountType{
	ledger.AccountTypeAsset,
	ledger.AccountTypeLiability,
	ledger.AccountTypeEquity,
	ledger.AccountTypeIncome,
	ledger.AccountTypeExpense,
}

// trialColumns splits a net debit-perspective balance into the debit
// or credit column, whichever side carried more.
func trialColumns(a AccountBalance) (debit, credit decimal.Decimal) {
	net := a.Debit.Sub(a.Credit)
	if net.IsNegative() {
		return decimal.Zero, net.Neg()
	}
	return net, decimal.Zero
}

// BuildTrialBalance assembles the trial balance from as-of balances.
// Accounts whose columns are both zero are omitted, except parents
// that still carry nonzero sub-accounts.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	tb := TrialBalance{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Difference:  decimal.Zero,
	}

	subsByParent := make(map[int64][]TrialBalanceRow)
	for _, a := range accounts {
		if !a.IsSub() {
			continue
		}
		debit, credit := trialColumns(a)
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		subsByParent[*a.ParentID] = append(subsByParent[*a.ParentID], TrialBalanceRow{
			AccountID: a.AccountID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			Debit:     debit,
			Credit:    credit,
		})
	}
	for id := range subsByParent {
		sort.Slice(subsByParent[id], func(i, j int) bool {
			return subsByParent[id][i].Code < subsByParent[id][j].Code
		})
	}

	byType := make(map[ledger.AccountType][]TrialBalanceRow)
	for _, a := range accounts {
		if a.IsSub() {
			continue
		}
		debit, credit := trialColumns(a)
		subs := subsByParent[a.AccountID]
		if debit.IsZero() && credit.IsZero() && len(subs) == 0 {
			continue
		}
		byType[a.Type] = append(byType[a.Type], TrialBalanceRow{
			AccountID: a.AccountID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			Debit:     debit,
			Credit:    credit,
			Subs:      subs,
		})
	}

	for _, t := range sectionOrder {
		rows := byType[t]
		if len(rows) == 0 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
		section := TrialBalanceSection{Type: t, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
		for _, row := range rows {
			section.TotalDebit = section.TotalDebit.Add(row.Debit)
			section.TotalCredit = section.TotalCredit.Add(row.Credit)
			for _, sub := range row.Subs {
				section.TotalDebit = section.TotalDebit.Add(sub.Debit)
				section.TotalCredit = section.TotalCredit.Add(sub.Credit)
			}
		}
		section.Rows = rows
		tb.Sections = append(tb.Sections, section)
		tb.TotalDebit = tb.TotalDebit.Add(section.TotalDebit)
		tb.TotalCredit = tb.TotalCredit.Add(section.TotalCredit)
	}
	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit)
	return tb
}
