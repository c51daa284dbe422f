package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// SubAccountLine is one journal hit on a sub-account.
type SubAccountLine struct {
	JournalID   int64           `json:"journal_id"`
	Date        string          `json:"date"`
	Reference   string          `json:"reference"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Running     decimal.Decimal `json:"running"`
	Description string          `json:"description,omitempty"`
}

// SubAccountSection is one sub-account with its activity and closing
// balance. The running balance is kept from the debit perspective for
// every account type, matching how the detail screen reads.
type SubAccountSection struct {
	AccountID int64            `json:"account_id"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Opening   decimal.Decimal  `json:"opening"`
	Lines     []SubAccountLine `json:"lines"`
	Closing   decimal.Decimal  `json:"closing"`
}

// SubAccountDetail reports a parent account's sub-accounts.
type SubAccountDetail struct {
	ParentID   int64               `json:"parent_id"`
	ParentName string              `json:"parent_name"`
	Sections   []SubAccountSection `json:"sections"`
	Total      decimal.Decimal     `json:"total"`
}

// BuildSubAccountDetail expands each sub-account of a parent into its
// journal activity with a debit-positive running balance.
func BuildSubAccountDetail(parent ledger.Account, subs []ledger.Account, details []ledger.JournalDetail) SubAccountDetail {
	out := SubAccountDetail{ParentID: parent.ID, ParentName: parent.Name, Total: decimal.Zero}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Code < subs[j].Code })
	for _, sub := range subs {
		section := SubAccountSection{
			AccountID: sub.ID,
			Code:      sub.Code,
			Name:      sub.Name,
			Opening:   sub.OpeningBalance,
		}
		running := sub.OpeningBalance
		for _, d := range details {
			var debit, credit decimal.Decimal
			switch sub.ID {
			case d.DebitAccount.ID:
				debit = d.Amount
			case d.CreditAccount.ID:
				credit = d.Amount
			default:
				continue
			}
			running = running.Add(debit).Sub(credit)
			section.Lines = append(section.Lines, SubAccountLine{
				JournalID:   d.JournalID,
				Date:        d.Date.Format("2006-01-02"),
				Reference:   JournalReference(d.JournalID),
				Debit:       debit,
				Credit:      credit,
				Running:     running,
				Description: d.Memo,
			})
		}
		section.Closing = running
		out.Sections = append(out.Sections, section)
		out.Total = out.Total.Add(running)
	}
	return out
}
