package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// memoryStore implements Store with copy-on-write transactions so that
// rollback behaviour can be asserted without a database.
type memoryStore struct {
	accounts     map[int64]*Account
	journals     []Journal
	transactions []Transaction
	payments     []Payment
	nextID       int64
}

func newMemoryStore(accounts ...Account) *memoryStore {
	s := &memoryStore{accounts: make(map[int64]*Account)}
	for i := range accounts {
		a := accounts[i]
		if a.ID > s.nextID {
			s.nextID = a.ID
		}
		s.accounts[a.ID] = &a
	}
	return s
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) clone() *memoryStore {
	dup := &memoryStore{
		accounts:     make(map[int64]*Account, len(s.accounts)),
		journals:     append([]Journal(nil), s.journals...),
		transactions: append([]Transaction(nil), s.transactions...),
		payments:     append([]Payment(nil), s.payments...),
		nextID:       s.nextID,
	}
	for id, a := range s.accounts {
		cp := *a
		dup.accounts[id] = &cp
	}
	return dup
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := s.clone()
	if err := fn(ctx, &memoryTx{store: work}); err != nil {
		return err
	}
	*s = *work
	return nil
}

func (s *memoryStore) ListAccounts(ctx context.Context, includeInactive bool) ([]Account, error) {
	var out []Account
	for _, a := range s.accounts {
		if includeInactive || a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memoryStore) GetAccount(ctx context.Context, id int64) (Account, error) {
	if a, ok := s.accounts[id]; ok {
		return *a, nil
	}
	return Account{}, ErrAccountNotFound
}

func (s *memoryStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	for _, a := range s.accounts {
		if a.Code == in.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	a := Account{
		ID:             s.id(),
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		ParentID:       in.ParentID,
		ReportingRole:  in.ReportingRole,
		OpeningBalance: in.OpeningBalance,
		Balance:        in.OpeningBalance,
		IsActive:       true,
		SortOrder:      in.SortOrder,
	}
	s.accounts[a.ID] = &a
	return a, nil
}

func (s *memoryStore) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	a, ok := s.accounts[in.ID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.Code = in.Code
	a.Name = in.Name
	a.ParentID = in.ParentID
	a.ReportingRole = in.ReportingRole
	a.IsActive = in.IsActive
	a.SortOrder = in.SortOrder
	return *a, nil
}

func (s *memoryStore) DeleteAccount(ctx context.Context, id int64) error {
	if _, ok := s.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memoryStore) CountChildren(ctx context.Context, id int64) (int, error) {
	n := 0
	for _, a := range s.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) CountPostings(ctx context.Context, id int64) (int, error) {
	n := 0
	for _, j := range s.journals {
		if j.DebitAccountID == id || j.CreditAccountID == id {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) FindAccountByRole(ctx context.Context, role ReportingRole) (Account, error) {
	for _, a := range s.accounts {
		if a.IsActive && a.ReportingRole != nil && *a.ReportingRole == role {
			return *a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *memoryStore) UpdateCachedBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	a, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Balance = balance
	return nil
}

// SumJournalTotals lets the memory store double as an AggregateSource.
func (s *memoryStore) SumJournalTotals(ctx context.Context, from *time.Time, to time.Time, accountID *int64) ([]TotalsRow, error) {
	src := &fakeAggregateSource{journals: s.journals}
	return src.SumJournalTotals(ctx, from, to, accountID)
}

func (s *memoryStore) ListActiveAccounts(ctx context.Context) ([]Account, error) {
	return s.ListAccounts(ctx, false)
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	return t.store.GetAccount(ctx, id)
}

func (t *memoryTx) InsertTransaction(ctx context.Context, trx Transaction) (int64, error) {
	trx.ID = t.store.id()
	t.store.transactions = append(t.store.transactions, trx)
	return trx.ID, nil
}

func (t *memoryTx) InsertJournal(ctx context.Context, j Journal) (int64, error) {
	j.ID = t.store.id()
	t.store.journals = append(t.store.journals, j)
	return j.ID, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = t.store.id()
	t.store.payments = append(t.store.payments, p)
	return p.ID, nil
}

func (t *memoryTx) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	a, ok := t.store.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}
