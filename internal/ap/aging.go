package ap

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AgingRow holds one supplier's outstanding balance bucketed by bill
// age at the cutoff date. Exactly 30 days lands in 1-30; 31 starts the
// next band.
type AgingRow struct {
	SupplierID int64           `json:"supplier_id,omitempty"`
	Supplier   string          `json:"supplier"`
	Current    decimal.Decimal `json:"current"`
	Days1to30  decimal.Decimal `json:"days_1_30"`
	Days31to60 decimal.Decimal `json:"days_31_60"`
	Days61to90 decimal.Decimal `json:"days_61_90"`
	Over90     decimal.Decimal `json:"over_90"`
	Total      decimal.Decimal `json:"total"`
}

// AgingReport is the payables aging as of a cutoff.
type AgingReport struct {
	AsOf   string     `json:"as_of"`
	Rows   []AgingRow `json:"rows"`
	Totals AgingRow   `json:"totals"`
}

// BalanceSummaryRow is one supplier's outstanding total.
type BalanceSummaryRow struct {
	SupplierID int64           `json:"supplier_id"`
	Supplier   string          `json:"supplier"`
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

// BuildAging buckets every outstanding bill by its age at the cutoff.
// Bills dated after the cutoff are ignored; suppliers with nothing
// outstanding are skipped, and bills of suppliers outside the given
// set do not report.
func BuildAging(suppliers []Supplier, bills []Bill, cutoff time.Time) AgingReport {
	names := make(map[int64]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
	}

	rows := make(map[int64]*AgingRow)
	for _, bill := range bills {
		if _, ok := names[bill.SupplierID]; !ok {
			continue
		}
		outstanding := bill.Outstanding()
		if outstanding.IsZero() || bill.Date.After(cutoff) {
			continue
		}
		row, ok := rows[bill.SupplierID]
		if !ok {
			zr := zeroAgingRow()
			zr.SupplierID = bill.SupplierID
			zr.Supplier = names[bill.SupplierID]
			row = &zr
			rows[bill.SupplierID] = row
		}
		days := int(cutoff.Sub(bill.Date).Hours() / 24)
		row.bucket(days, outstanding)
	}

	report := AgingReport{AsOf: cutoff.Format("2006-01-02"), Totals: zeroAgingRow()}
	report.Totals.Supplier = "Total"
	for _, row := range rows {
		report.Rows = append(report.Rows, *row)
		report.Totals.add(*row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Supplier < report.Rows[j].Supplier })
	return report
}

// BuildBalanceSummary sums each supplier's outstanding bills as of the
// cutoff, omitting zero balances.
func BuildBalanceSummary(suppliers []Supplier, bills []Bill, cutoff time.Time) []BalanceSummaryRow {
	balances := make(map[int64]decimal.Decimal)
	for _, bill := range bills {
		outstanding := bill.Outstanding()
		if outstanding.IsZero() || bill.Date.After(cutoff) {
			continue
		}
		current, ok := balances[bill.SupplierID]
		if !ok {
			current = decimal.Zero
		}
		balances[bill.SupplierID] = current.Add(outstanding)
	}

	var out []BalanceSummaryRow
	for _, s := range suppliers {
		balance, ok := balances[s.ID]
		if !ok || balance.IsZero() {
			continue
		}
		out = append(out, BalanceSummaryRow{SupplierID: s.ID, Supplier: s.Name, Balance: balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Supplier < out[j].Supplier })
	return out
}
