package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// fakeReader serves accounts and journals from memory.
type fakeReader struct {
	accounts []ledger.Account
	journals []ledger.Journal
}

func (f *fakeReader) ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		if includeInactive || a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeReader) ListActiveAccounts(ctx context.Context) ([]ledger.Account, error) {
	return f.ListAccounts(ctx, false)
}

func (f *fakeReader) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (f *fakeReader) SumJournalTotals(ctx context.Context, from *time.Time, to time.Time, accountID *int64) ([]ledger.TotalsRow, error) {
	totals := make(map[int64]*ledger.TotalsRow)
	row := func(id int64) *ledger.TotalsRow {
		if r, ok := totals[id]; ok {
			return r
		}
		r := &ledger.TotalsRow{AccountID: id}
		totals[id] = r
		return r
	}
	for _, j := range f.journals {
		if j.Date.After(to) {
			continue
		}
		if from != nil && j.Date.Before(*from) {
			continue
		}
		if accountID == nil || *accountID == j.DebitAccountID {
			r := row(j.DebitAccountID)
			r.Debit = r.Debit.Add(j.Amount)
		}
		if accountID == nil || *accountID == j.CreditAccountID {
			r := row(j.CreditAccountID)
			r.Credit = r.Credit.Add(j.Amount)
		}
	}
	out := make([]ledger.TotalsRow, 0, len(totals))
	for _, r := range totals {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReader) ListJournalDetails(ctx context.Context, from, to time.Time, accountID *int64) ([]ledger.JournalDetail, error) {
	refs := make(map[int64]ledger.AccountRef)
	for _, a := range f.accounts {
		refs[a.ID] = ledger.AccountRef{ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Opening: a.OpeningBalance}
	}
	var out []ledger.JournalDetail
	for _, j := range f.journals {
		if j.Date.Before(from) || j.Date.After(to) {
			continue
		}
		if accountID != nil && j.DebitAccountID != *accountID && j.CreditAccountID != *accountID {
			continue
		}
		out = append(out, ledger.JournalDetail{
			JournalID:     j.ID,
			Date:          j.Date,
			Amount:        j.Amount,
			Memo:          j.Memo,
			DebitAccount:  refs[j.DebitAccountID],
			CreditAccount: refs[j.CreditAccountID],
		})
	}
	return out, nil
}

// A cash business: $500 opening cash against owner equity, one $100
// sale in January, $40 rent in February.
func newFakeReader() *fakeReader {
	return &fakeReader{
		accounts: []ledger.Account{
			{ID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, OpeningBalance: d("500"), IsActive: true},
			{ID: 2, Code: "3000", Name: "Owner Equity", Type: ledger.AccountTypeEquity, OpeningBalance: d("-500"), IsActive: true},
			{ID: 3, Code: "4000", Name: "Sales", Type: ledger.AccountTypeIncome, IsActive: true},
			{ID: 4, Code: "6000", Name: "Rent", Type: ledger.AccountTypeExpense, IsActive: true},
		},
		journals: []ledger.Journal{
			{ID: 1, Date: day("2024-01-15"), Amount: d("100"), DebitAccountID: 1, CreditAccountID: 3, Memo: "Cash sale"},
			{ID: 2, Date: day("2024-02-10"), Amount: d("40"), DebitAccountID: 4, CreditAccountID: 1, Memo: "February rent"},
		},
	}
}

func TestServiceTrialBalanceBalances(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)

	tb, err := svc.TrialBalance(context.Background(), day("2024-12-31"))
	require.NoError(t, err)
	require.True(t, tb.Difference.IsZero(), tb.Difference.String())
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))

	// Cash: 500 opening + 100 sale - 40 rent, presented in the debit column.
	require.Equal(t, ledger.AccountTypeAsset, tb.Sections[0].Type)
	require.True(t, tb.Sections[0].TotalDebit.Equal(d("560")), tb.Sections[0].TotalDebit.String())
	require.True(t, tb.Sections[0].TotalCredit.IsZero())
}

func TestServiceBalanceSheetStaysBalancedMidYear(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)

	bs, err := svc.BalanceSheet(context.Background(), day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.True(t, bs.Equation.Balanced)
	require.True(t, bs.Equation.TotalAssets.Equal(d("600")))
}

func TestServiceBalanceSheetNetProfitFollowsPeriod(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)

	// February only: positions are cumulative through the period end,
	// but net profit covers just the February rent.
	bs, err := svc.BalanceSheet(context.Background(), day("2024-02-01"), day("2024-02-29"))
	require.NoError(t, err)
	require.True(t, bs.Equation.TotalAssets.Equal(d("560")), bs.Equation.TotalAssets.String())

	var netProfit *BalanceSheetLine
	for i := range bs.Equity.Lines {
		if bs.Equity.Lines[i].Name == "Net Profit" {
			netProfit = &bs.Equity.Lines[i]
		}
	}
	require.NotNil(t, netProfit)
	require.True(t, netProfit.Balance.Equal(d("-40")), netProfit.Balance.String())
}

func TestServiceIncomeStatementPeriodBounds(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)

	// January only: the February rent stays out.
	pl, err := svc.IncomeStatement(context.Background(), day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.True(t, pl.Income.Total.Equal(d("100")))
	require.True(t, pl.Expense.Total.IsZero())
}

func TestServiceCashFlowBeginningCash(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)

	// February: beginning cash includes the opening and the January sale.
	cf, err := svc.CashFlow(context.Background(), day("2024-02-01"), day("2024-02-29"))
	require.NoError(t, err)
	require.True(t, cf.BeginningCash.Equal(d("600")), cf.BeginningCash.String())
	require.True(t, cf.NetCashChange.Equal(d("-40")))
	require.True(t, cf.EndingCash.Equal(d("560")))
}

func TestServiceGeneralLedgerAndSubDetail(t *testing.T) {
	reader := newFakeReader()
	parentID := int64(1)
	reader.accounts = append(reader.accounts, ledger.Account{
		ID: 5, Code: "1010", Name: "Petty Cash", Type: ledger.AccountTypeAsset, ParentID: &parentID, IsActive: true,
	})
	svc := NewService(reader, nil, nil)

	gl, err := svc.GeneralLedger(context.Background(), day("2024-01-01"), day("2024-12-31"), nil)
	require.NoError(t, err)
	require.Len(t, gl.Rows, 4)
	require.True(t, gl.TotalDebit.Equal(gl.TotalCredit))

	detail, err := svc.SubAccountDetail(context.Background(), 1, day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, detail.Sections, 1)
	require.Equal(t, "1010", detail.Sections[0].Code)

	_, err = svc.SubAccountDetail(context.Background(), 99, day("2024-01-01"), day("2024-12-31"))
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestServiceGeneralLedgerAccountFilter(t *testing.T) {
	svc := NewService(newFakeReader(), nil, nil)
	salesID := int64(3)

	gl, err := svc.GeneralLedger(context.Background(), day("2024-01-01"), day("2024-12-31"), &salesID)
	require.NoError(t, err)

	// Only the cash sale touches Sales; both of its sides appear.
	require.Len(t, gl.Rows, 2)
	for _, row := range gl.Rows {
		require.Equal(t, int64(1), row.JournalID)
	}
	require.True(t, gl.TotalDebit.Equal(d("100")))
	require.True(t, gl.TotalCredit.Equal(d("100")))
}

func TestServiceServesCachedReports(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reader := newFakeReader()
	svc := NewService(reader, NewCache(rdb, time.Minute), nil)
	ctx := context.Background()

	first, err := svc.TrialBalance(ctx, day("2024-12-31"))
	require.NoError(t, err)

	// New postings do not show until the cache is invalidated.
	reader.journals = append(reader.journals, ledger.Journal{
		ID: 3, Date: day("2024-03-01"), Amount: d("999"), DebitAccountID: 1, CreditAccountID: 3,
	})
	cached, err := svc.TrialBalance(ctx, day("2024-12-31"))
	require.NoError(t, err)
	require.True(t, cached.TotalDebit.Equal(first.TotalDebit))

	svc.InvalidateCache(ctx)
	fresh, err := svc.TrialBalance(ctx, day("2024-12-31"))
	require.NoError(t, err)
	require.True(t, fresh.TotalDebit.Equal(first.TotalDebit.Add(d("999"))))
}
