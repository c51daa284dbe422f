package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// LedgerReader is the slice of the ledger store the report service
// needs. *ledger.Repository satisfies it.
type LedgerReader interface {
	ledger.AggregateSource
	ListAccounts(ctx context.Context, includeInactive bool) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id int64) (ledger.Account, error)
	ListJournalDetails(ctx context.Context, from, to time.Time, accountID *int64) ([]ledger.JournalDetail, error)
}

// Service builds reports on demand. Identical concurrent requests
// collapse through singleflight and completed reports are cached, so a
// burst of dashboard loads costs one aggregation.
type Service struct {
	reader LedgerReader
	agg    *ledger.Aggregator
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service. cache may be nil to disable caching.
func NewService(reader LedgerReader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reader: reader,
		agg:    ledger.NewAggregator(reader),
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// TrialBalance builds the trial balance as of the cutoff date.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	key := "reports:tb:" + asOf.Format("2006-01-02")
	return buildCached(ctx, s, key, func(ctx context.Context) (TrialBalance, error) {
		balances, err := s.balances(ctx, ledger.AsOf(asOf))
		if err != nil {
			return TrialBalance{}, err
		}
		return BuildTrialBalance(balances), nil
	})
}

// BalanceSheet builds the balance sheet as of the period end. Asset,
// liability and equity positions are cumulative through to; net profit
// is a separate income/expense aggregation over [from, to] folded into
// the equity section.
func (s *Service) BalanceSheet(ctx context.Context, from, to time.Time) (BalanceSheet, error) {
	key := fmt.Sprintf("reports:bs:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return buildCached(ctx, s, key, func(ctx context.Context) (BalanceSheet, error) {
		balances, err := s.balances(ctx, ledger.AsOf(to))
		if err != nil {
			return BalanceSheet{}, err
		}
		period, err := s.balances(ctx, ledger.Period(from, to))
		if err != nil {
			return BalanceSheet{}, err
		}
		return BuildBalanceSheet(balances, PeriodNetIncome(period)), nil
	})
}

// IncomeStatement builds the profit and loss for an inclusive period.
func (s *Service) IncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	key := fmt.Sprintf("reports:pl:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return buildCached(ctx, s, key, func(ctx context.Context) (IncomeStatement, error) {
		balances, err := s.balances(ctx, ledger.Period(from, to))
		if err != nil {
			return IncomeStatement{}, err
		}
		return BuildIncomeStatement(balances), nil
	})
}

// CashFlow builds the indirect-method cash flow for a period.
// Beginning cash is the bank position from inception to the day before
// the period starts.
func (s *Service) CashFlow(ctx context.Context, from, to time.Time) (CashFlowStatement, error) {
	key := fmt.Sprintf("reports:cf:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return buildCached(ctx, s, key, func(ctx context.Context) (CashFlowStatement, error) {
		period, err := s.balances(ctx, ledger.Period(from, to))
		if err != nil {
			return CashFlowStatement{}, err
		}
		prior, err := s.balances(ctx, ledger.AsOf(from.AddDate(0, 0, -1)))
		if err != nil {
			return CashFlowStatement{}, err
		}
		return BuildCashFlow(period, BeginningCash(prior)), nil
	})
}

// GeneralLedger builds the activity report for a period. A non-nil
// accountID restricts the report to journals touching that account;
// both sides of a matching journal still appear.
func (s *Service) GeneralLedger(ctx context.Context, from, to time.Time, accountID *int64) (GeneralLedger, error) {
	scope := "all"
	if accountID != nil {
		scope = fmt.Sprintf("%d", *accountID)
	}
	key := fmt.Sprintf("reports:gl:%s:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"), scope)
	return buildCached(ctx, s, key, func(ctx context.Context) (GeneralLedger, error) {
		details, err := s.reader.ListJournalDetails(ctx, from, to, accountID)
		if err != nil {
			return GeneralLedger{}, err
		}
		return BuildGeneralLedger(details), nil
	})
}

// SubAccountDetail reports a parent account's sub-account activity.
func (s *Service) SubAccountDetail(ctx context.Context, parentID int64, from, to time.Time) (SubAccountDetail, error) {
	parent, err := s.reader.GetAccount(ctx, parentID)
	if err != nil {
		return SubAccountDetail{}, err
	}
	accounts, err := s.reader.ListAccounts(ctx, true)
	if err != nil {
		return SubAccountDetail{}, err
	}
	var subs []ledger.Account
	for _, a := range accounts {
		if a.ParentID != nil && *a.ParentID == parentID {
			subs = append(subs, a)
		}
	}
	details, err := s.reader.ListJournalDetails(ctx, from, to, nil)
	if err != nil {
		return SubAccountDetail{}, err
	}
	return BuildSubAccountDetail(parent, subs, details), nil
}

// InvalidateCache drops cached reports after a posting.
func (s *Service) InvalidateCache(ctx context.Context) {
	s.cache.Bust(ctx)
}

// WarmCache pre-builds the dashboard reports so the first request
// after a cache bust does not pay the aggregation cost.
func (s *Service) WarmCache(ctx context.Context) error {
	today := s.now().Truncate(24 * time.Hour)
	startOfYear := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	if _, err := s.TrialBalance(ctx, today); err != nil {
		return err
	}
	if _, err := s.BalanceSheet(ctx, startOfYear, today); err != nil {
		return err
	}
	_, err := s.IncomeStatement(ctx, startOfYear, today)
	return err
}

// balances assembles AccountBalance rows for every active account plus
// any inactive account that still posted in the range.
func (s *Service) balances(ctx context.Context, rng ledger.AggregateRange) ([]AccountBalance, error) {
	totals, err := s.agg.Totals(ctx, rng, nil)
	if err != nil {
		return nil, err
	}
	accounts, err := s.reader.ListAccounts(ctx, true)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	out := make([]AccountBalance, 0, len(totals))
	for _, a := range accounts {
		t, ok := totals[a.ID]
		if !ok {
			// Inactive and silent over the range.
			continue
		}
		b := AccountBalance{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			ParentID:  a.ParentID,
			Role:      a.ReportingRole,
			Opening:   a.OpeningBalance,
			Debit:     t.Debit,
			Credit:    t.Credit,
		}
		if a.ParentID != nil {
			b.ParentName = names[*a.ParentID]
		}
		out = append(out, b)
	}
	return out, nil
}

// buildCached wraps a report build with the cache and singleflight.
func buildCached[T any](ctx context.Context, s *Service, key string, build func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		report, err := build(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, report)
		return report, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
