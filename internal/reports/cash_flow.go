package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// CashFlowLine is one adjustment on the statement.
type CashFlowLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CashFlowStatement is the indirect-method cash flow for a period.
// Investing and financing activities are not tracked yet; their
// sections are carried at zero so the statement keeps its full shape.
type CashFlowStatement struct {
	Operating     []CashFlowLine  `json:"operating"`
	NetOperating  decimal.Decimal `json:"net_operating"`
	Investing     []CashFlowLine  `json:"investing"`
	NetInvesting  decimal.Decimal `json:"net_investing"`
	Financing     []CashFlowLine  `json:"financing"`
	NetFinancing  decimal.Decimal `json:"net_financing"`
	NetCashChange decimal.Decimal `json:"net_cash_change"`
	BeginningCash decimal.Decimal `json:"beginning_cash"`
	EndingCash    decimal.Decimal `json:"ending_cash"`
}

// EffectiveRole resolves the reporting role used for cash flow
// classification. The explicit tag wins; untagged accounts fall back
// to name matching so ledgers predating the tags still classify.
func EffectiveRole(a AccountBalance) *ledger.ReportingRole {
	if a.Role != nil {
		return a.Role
	}
	name := strings.ToLower(a.Name)
	var role ledger.ReportingRole
	switch {
	case a.Type == ledger.AccountTypeAsset && strings.Contains(name, "receivable"):
		role = ledger.RoleReceivable
	case a.Type == ledger.AccountTypeAsset && strings.Contains(name, "inventory"):
		role = ledger.RoleInventory
	case a.Type == ledger.AccountTypeLiability && strings.Contains(name, "payable"):
		role = ledger.RolePayable
	case a.Type == ledger.AccountTypeAsset && (strings.Contains(name, "bank") || strings.Contains(name, "cash") || strings.Contains(name, "checking") || strings.Contains(name, "savings")):
		role = ledger.RoleBank
	default:
		return nil
	}
	return &role
}

// BuildCashFlow assembles the indirect-method statement. The period
// balances supply net income and the working-capital deltas; the
// caller computes beginning cash from activity strictly before the
// period. A credit-heavy delta on receivables or inventory frees cash,
// and a credit-heavy delta on payables defers it, so every
// working-capital line is credit minus debit over the period.
func BuildCashFlow(period []AccountBalance, beginningCash decimal.Decimal) CashFlowStatement {
	arDelta := decimal.Zero
	invDelta := decimal.Zero
	apDelta := decimal.Zero
	for _, a := range period {
		role := EffectiveRole(a)
		if role == nil {
			continue
		}
		delta := a.Credit.Sub(a.Debit)
		switch *role {
		case ledger.RoleReceivable:
			arDelta = arDelta.Add(delta)
		case ledger.RoleInventory:
			invDelta = invDelta.Add(delta)
		case ledger.RolePayable:
			apDelta = apDelta.Add(delta)
		}
	}

	// Net income must stay unfloored here: an income account running
	// against its nature still moves cash.
	lines := []CashFlowLine{
		{Label: "Net Income", Amount: PeriodNetIncome(period)},
		{Label: "Depreciation", Amount: decimal.Zero},
		{Label: "Change in Accounts Receivable", Amount: arDelta},
		{Label: "Change in Inventory", Amount: invDelta},
		{Label: "Change in Accounts Payable", Amount: apDelta},
	}

	netOperating := decimal.Zero
	for _, l := range lines {
		netOperating = netOperating.Add(l.Amount)
	}

	return CashFlowStatement{
		Operating:     lines,
		NetOperating:  netOperating,
		Investing:     []CashFlowLine{},
		NetInvesting:  decimal.Zero,
		Financing:     []CashFlowLine{},
		NetFinancing:  decimal.Zero,
		NetCashChange: netOperating,
		BeginningCash: beginningCash,
		EndingCash:    beginningCash.Add(netOperating),
	}
}

// BeginningCash sums cash on hand at the start of a period from as-of
// balances cut strictly before the period. As-of aggregation already
// folds each opening balance into the debit side, so the net of the
// two sides is the full cash position.
func BeginningCash(prior []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, a := range prior {
		role := EffectiveRole(a)
		if role == nil || *role != ledger.RoleBank {
			continue
		}
		total = total.Add(a.Net())
	}
	return total
}
