package ar

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AgingRow holds one customer's outstanding balance bucketed by
// invoice age at the cutoff date.
type AgingRow struct {
	CustomerID int64           `json:"customer_id,omitempty"`
	Customer   string          `json:"customer"`
	Current    decimal.Decimal `json:"current"`
	Days1to30  decimal.Decimal `json:"days_1_30"`
	Days31to60 decimal.Decimal `json:"days_31_60"`
	Days61to90 decimal.Decimal `json:"days_61_90"`
	Over90     decimal.Decimal `json:"over_90"`
	Total      decimal.Decimal `json:"total"`
}

// AgingReport is the receivables aging as of a cutoff.
type AgingReport struct {
	AsOf   string     `json:"as_of"`
	Rows   []AgingRow `json:"rows"`
	Totals AgingRow   `json:"totals"`
}

// BalanceSummaryRow is one customer's outstanding total.
type BalanceSummaryRow struct {
	CustomerID int64           `json:"customer_id"`
	Customer   string          `json:"customer"`
	Balance    decimal.Decimal `json:"balance"`
}

func zeroAgingRow() AgingRow {
	return AgingRow{
		Current:    decimal.Zero,
		Days1to30:  decimal.Zero,
		Days31to60: decimal.Zero,
		Days61to90: decimal.Zero,
		Over90:     decimal.Zero,
		Total:      decimal.Zero,
	}
}

// bucket adds amount to the band for an invoice aged the given number
// of days. Exactly 30 days lands in 1-30; 31 starts the next band.
func (r *AgingRow) bucket(days int, amount decimal.Decimal) {
	switch {
	case days <= 0:
		r.Current = r.Current.Add(amount)
	case days <= 30:
		r.Days1to30 = r.Days1to30.Add(amount)
	case days <= 60:
		r.Days31to60 = r.Days31to60.Add(amount)
	case days <= 90:
		r.Days61to90 = r.Days61to90.Add(amount)
	default:
		r.Over90 = r.Over90.Add(amount)
	}
	r.Total = r.Total.Add(amount)
}

func (r *AgingRow) add(other AgingRow) {
	r.Current = r.Current.Add(other.Current)
	r.Days1to30 = r.Days1to30.Add(other.Days1to30)
	r.Days31to60 = r.Days31to60.Add(other.Days31to60)
	r.Days61to90 = r.Days61to90.Add(other.Days61to90)
	r.Over90 = r.Over90.Add(other.Over90)
	r.Total = r.Total.Add(other.Total)
}

// AgeDays counts whole days from the invoice date to the cutoff.
func AgeDays(invoiceDate, cutoff time.Time) int {
	return int(cutoff.Sub(invoiceDate).Hours() / 24)
}

// BuildAging buckets every outstanding invoice by its age at the
// cutoff. Invoices dated after the cutoff are ignored; customers with
// nothing outstanding are skipped, and invoices of customers outside
// the given set do not report.
func BuildAging(customers []Customer, invoices []Invoice, cutoff time.Time) AgingReport {
	names := make(map[int64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	rows := make(map[int64]*AgingRow)
	for _, inv := range invoices {
		if _, ok := names[inv.CustomerID]; !ok {
			continue
		}
		outstanding := inv.Outstanding()
		if outstanding.IsZero() || inv.Date.After(cutoff) {
			continue
		}
		row, ok := rows[inv.CustomerID]
		if !ok {
			zr := zeroAgingRow()
			zr.CustomerID = inv.CustomerID
			zr.Customer = names[inv.CustomerID]
			row = &zr
			rows[inv.CustomerID] = row
		}
		row.bucket(AgeDays(inv.Date, cutoff), outstanding)
	}

	report := AgingReport{AsOf: cutoff.Format("2006-01-02"), Totals: zeroAgingRow()}
	report.Totals.Customer = "Total"
	for _, row := range rows {
		report.Rows = append(report.Rows, *row)
		report.Totals.add(*row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Customer < report.Rows[j].Customer })
	return report
}

// BuildBalanceSummary sums each customer's outstanding invoices as of
// the cutoff, omitting zero balances.
func BuildBalanceSummary(customers []Customer, invoices []Invoice, cutoff time.Time) []BalanceSummaryRow {
	balances := make(map[int64]decimal.Decimal)
	for _, inv := range invoices {
		outstanding := inv.Outstanding()
		if outstanding.IsZero() || inv.Date.After(cutoff) {
			continue
		}
		current, ok := balances[inv.CustomerID]
		if !ok {
			current = decimal.Zero
		}
		balances[inv.CustomerID] = current.Add(outstanding)
	}

	var out []BalanceSummaryRow
	for _, c := range customers {
		balance, ok := balances[c.ID]
		if !ok || balance.IsZero() {
			continue
		}
		out = append(out, BalanceSummaryRow{CustomerID: c.ID, Customer: c.Name, Balance: balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Customer < out[j].Customer })
	return out
}
