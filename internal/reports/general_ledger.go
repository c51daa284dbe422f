package reports

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// GeneralLedgerRow is one side of a journal under one account. Every
// journal produces two rows: a debit row under its debit account and a
// credit row under its credit account.
type GeneralLedgerRow struct {
	JournalID   int64           `json:"journal_id"`
	Date        string          `json:"date"`
	Reference   string          `json:"reference"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	ParentName  string          `json:"parent_name,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Running     decimal.Decimal `json:"running"`
	Description string          `json:"description,omitempty"`
}

// GeneralLedger is the full activity report for a period.
type GeneralLedger struct {
	Rows        []GeneralLedgerRow `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// JournalReference renders the display reference for a journal.
func JournalReference(id int64) string {
	return fmt.Sprintf("JRN-%06d", id)
}

// BuildGeneralLedger expands journals into per-account rows ordered by
// account code, then date, then journal id, with a running balance per
// account. The running balance follows the account's normal side, so a
// healthy account runs positive.
func BuildGeneralLedger(details []ledger.JournalDetail) GeneralLedger {
	type sideRow struct {
		account ledger.AccountRef
		debit   decimal.Decimal
		credit  decimal.Decimal
		detail  ledger.JournalDetail
	}

	rows := make([]sideRow, 0, len(details)*2)
	for _, d := range details {
		rows = append(rows,
			sideRow{account: d.DebitAccount, debit: d.Amount, credit: decimal.Zero, detail: d},
			sideRow{account: d.CreditAccount, debit: decimal.Zero, credit: d.Amount, detail: d},
		)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].account.Code != rows[j].account.Code {
			return rows[i].account.Code < rows[j].account.Code
		}
		if !rows[i].detail.Date.Equal(rows[j].detail.Date) {
			return rows[i].detail.Date.Before(rows[j].detail.Date)
		}
		return rows[i].detail.JournalID < rows[j].detail.JournalID
	})

	gl := GeneralLedger{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	running := decimal.Zero
	currentCode := ""
	for _, r := range rows {
		if r.account.Code != currentCode {
			currentCode = r.account.Code
			running = r.account.Opening
		}
		if ledger.NormalBalance(r.account.Type) == ledger.SideDebit {
			running = running.Add(r.debit).Sub(r.credit)
		} else {
			running = running.Add(r.credit).Sub(r.debit)
		}
		gl.Rows = append(gl.Rows, GeneralLedgerRow{
			JournalID:   r.detail.JournalID,
			Date:        r.detail.Date.Format("2006-01-02"),
			Reference:   JournalReference(r.detail.JournalID),
			AccountCode: r.account.Code,
			AccountName: r.account.Name,
			ParentName:  r.account.ParentName,
			Debit:       r.debit,
			Credit:      r.credit,
			Running:     running,
			Description: r.detail.Memo,
		})
		gl.TotalDebit = gl.TotalDebit.Add(r.debit)
		gl.TotalCredit = gl.TotalCredit.Add(r.credit)
	}
	return gl
}
