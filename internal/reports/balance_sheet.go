package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// BalanceSheetLine is one account on the statement.
type BalanceSheetLine struct {
	AccountID int64           `json:"account_id,omitempty"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSheetSection holds one classification and its total.
type BalanceSheetSection struct {
	Label string             `json:"label"`
	Lines []BalanceSheetLine `json:"lines"`
	Total decimal.Decimal    `json:"total"`
}

// BalanceSheet is the statement as of the period end. Net profit for
// the reporting period is folded into the equity section as a
// synthetic line, which is what makes the two sides meet. Equation
// carries both side totals so callers can see whether the books
// balance.
type BalanceSheet struct {
	Assets      BalanceSheetSection  `json:"assets"`
	Liabilities BalanceSheetSection  `json:"liabilities"`
	Equity      BalanceSheetSection  `json:"equity"`
	Equation    BalanceSheetEquation `json:"equation"`
}

// BalanceSheetEquation is the accounting-equation diagnostic.
type BalanceSheetEquation struct {
	TotalAssets               decimal.Decimal `json:"total_assets"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	Balanced                  bool            `json:"balanced"`
}

// BuildBalanceSheet assembles the statement from as-of balances.
// netProfit is aggregated separately over the reporting period and
// lands as a synthetic equity line.
func BuildBalanceSheet(accounts []AccountBalance, netProfit decimal.Decimal) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}

	for _, a := range accounts {
		balance := a.Presented()
		if balance.IsZero() {
			continue
		}
		line := BalanceSheetLine{AccountID: a.AccountID, Code: a.Code, Name: a.Name, Balance: balance}
		switch a.Type {
		case ledger.AccountTypeAsset:
			assets.Lines = append(assets.Lines, line)
			assets.Total = assets.Total.Add(balance)
		case ledger.AccountTypeLiability:
			liabilities.Lines = append(liabilities.Lines, line)
			liabilities.Total = liabilities.Total.Add(balance)
		case ledger.AccountTypeEquity:
			equity.Lines = append(equity.Lines, line)
			equity.Total = equity.Total.Add(balance)
		}
	}

	sortByCode := func(lines []BalanceSheetLine) {
		sort.Slice(lines, func(i, j int) bool { return lines[i].Code < lines[j].Code })
	}
	sortByCode(assets.Lines)
	sortByCode(liabilities.Lines)
	sortByCode(equity.Lines)

	equity.Lines = append(equity.Lines, BalanceSheetLine{Name: "Net Profit", Balance: netProfit})
	equity.Total = equity.Total.Add(netProfit)

	rightSide := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:      assets,
		Liabilities: liabilities,
		Equity:      equity,
		Equation: BalanceSheetEquation{
			TotalAssets:               assets.Total,
			TotalLiabilitiesAndEquity: rightSide,
			Balanced:                  assets.Total.Equal(rightSide),
		},
	}
}
