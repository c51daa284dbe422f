package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateMode selects how the engine bounds its journal scan.
type AggregateMode string

const (
	// ModeAsOf sums cumulatively from inception through the cutoff date
	// and folds each account's opening balance into its debit side.
	ModeAsOf AggregateMode = "AS_OF"
	// ModePeriod sums only postings dated inside [From, To].
	ModePeriod AggregateMode = "PERIOD"
)

// AggregateRange is the date window of an aggregation request.
// Bounds are inclusive.
type AggregateRange struct {
	Mode AggregateMode
	From time.Time
	To   time.Time
}

// AsOf builds a cumulative range through cutoff.
func AsOf(cutoff time.Time) AggregateRange {
	return AggregateRange{Mode: ModeAsOf, To: cutoff}
}

// Period builds a bounded range over [from, to].
func Period(from, to time.Time) AggregateRange {
	return AggregateRange{Mode: ModePeriod, From: from, To: to}
}

// ErrInvalidRange indicates a malformed aggregation window.
var ErrInvalidRange = errors.New("ledger: invalid aggregation range")

// Validate checks range consistency.
func (r AggregateRange) Validate() error {
	if r.To.IsZero() {
		return ErrInvalidRange
	}
	if r.Mode == ModePeriod && (r.From.IsZero() || r.From.After(r.To)) {
		return ErrInvalidRange
	}
	return nil
}

// Totals carries an account's summed debit and credit sides.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// TotalsRow is one aggregated repository row.
type TotalsRow struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// AggregateSource supplies the data the engine sums over.
type AggregateSource interface {
	// SumJournalTotals returns per-account debit/credit sums for journals
	// dated in [from, to]; nil from means inception. A non-nil accountID
	// restricts the scan to journals touching that account.
	SumJournalTotals(ctx context.Context, from *time.Time, to time.Time, accountID *int64) ([]TotalsRow, error)
	ListActiveAccounts(ctx context.Context) ([]Account, error)
}

// Aggregator is the single debit/credit aggregation engine used by all
// report builders. It is read-only.
type Aggregator struct {
	src AggregateSource
}

// NewAggregator constructs the engine.
func NewAggregator(src AggregateSource) *Aggregator {
	return &Aggregator{src: src}
}

// Totals returns a map from account id to summed debit/credit totals
// for the requested range. Every active account appears in the result;
// accounts with no postings carry zero totals, not absence. In as-of
// mode each account's opening balance is added to its debit side.
func (a *Aggregator) Totals(ctx context.Context, rng AggregateRange, accountID *int64) (map[int64]Totals, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var from *time.Time
	if rng.Mode == ModePeriod {
		f := rng.From
		from = &f
	}

	rows, err := a.src.SumJournalTotals(ctx, from, rng.To, accountID)
	if err != nil {
		return nil, err
	}

	result := make(map[int64]Totals)
	accounts, err := a.src.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if accountID != nil && acc.ID != *accountID {
			continue
		}
		t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
		if rng.Mode == ModeAsOf {
			t.Debit = t.Debit.Add(acc.OpeningBalance)
		}
		result[acc.ID] = t
	}

	for _, row := range rows {
		t, ok := result[row.AccountID]
		if !ok {
			// Inactive account with postings still contributes totals.
			t = Totals{Debit: decimal.Zero, Credit: decimal.Zero}
		}
		t.Debit = t.Debit.Add(row.Debit)
		t.Credit = t.Credit.Add(row.Credit)
		result[row.AccountID] = t
	}

	return result, nil
}

// SumSides reduces a totals map to grand debit and credit totals.
// For any journal set the two must match; report builders surface the
// difference rather than asserting it.
func SumSides(totals map[int64]Totals) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, t := range totals {
		debit = debit.Add(t.Debit)
		credit = credit.Add(t.Credit)
	}
	return debit, credit
}
