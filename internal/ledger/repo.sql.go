package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, code, name, type, parent_id, reporting_role, opening_balance, balance, is_active, sort_order, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.ReportingRole, &a.OpeningBalance, &a.Balance, &a.IsActive, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListAccounts returns the full chart ordered by sort order then code.
func (r *Repository) ListAccounts(ctx context.Context, includeInactive bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sort_order, code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListActiveAccounts satisfies AggregateSource.
func (r *Repository) ListActiveAccounts(ctx context.Context) ([]Account, error) {
	return r.ListAccounts(ctx, false)
}

// GetAccount fetches one account by id.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// FindAccountByRole returns the first active account tagged with role.
func (r *Repository) FindAccountByRole(ctx context.Context, role ReportingRole) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reporting_role=$1 AND is_active ORDER BY sort_order, code LIMIT 1`, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// CreateAccount inserts a chart node.
func (r *Repository) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, reporting_role, opening_balance, balance, is_active, sort_order)
VALUES ($1,$2,$3,$4,$5,$6,$6,TRUE,$7) RETURNING `+accountColumns,
		in.Code, in.Name, in.Type, in.ParentID, in.ReportingRole, in.OpeningBalance, in.SortOrder)
	a, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return a, nil
}

// UpdateAccount edits account metadata. Type is never touched.
func (r *Repository) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET code=$2, name=$3, parent_id=$4, reporting_role=$5, is_active=$6, sort_order=$7, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns,
		in.ID, in.Code, in.Name, in.ParentID, in.ReportingRole, in.IsActive, in.SortOrder)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account row. Guards run in the service.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountChildren counts direct sub-accounts.
func (r *Repository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE parent_id=$1`, id).Scan(&n)
	return n, err
}

// CountPostings counts journals touching the account on either side.
func (r *Repository) CountPostings(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journals WHERE debit_account_id=$1 OR credit_account_id=$1`, id).Scan(&n)
	return n, err
}

// SumJournalTotals aggregates debit and credit sides per account for
// journals dated in [from, to]; nil from means inception.
func (r *Repository) SumJournalTotals(ctx context.Context, from *time.Time, to time.Time, accountID *int64) ([]TotalsRow, error) {
	rows, err := r.pool.Query(ctx, `
SELECT account_id, COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0)
FROM (
    SELECT debit_account_id AS account_id, amount AS debit, NULL::numeric AS credit
    FROM journals WHERE date <= $1 AND ($2::date IS NULL OR date >= $2)
    UNION ALL
    SELECT credit_account_id, NULL, amount
    FROM journals WHERE date <= $1 AND ($2::date IS NULL OR date >= $2)
) sides
WHERE $3::bigint IS NULL OR account_id = $3
GROUP BY account_id`, to, from, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TotalsRow
	for rows.Next() {
		var row TotalsRow
		if err := rows.Scan(&row.AccountID, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListJournalDetails returns journals dated in [from, to] joined with
// both participating accounts, ordered by date then id. A non-nil
// accountID restricts to journals touching that account.
func (r *Repository) ListJournalDetails(ctx context.Context, from, to time.Time, accountID *int64) ([]JournalDetail, error) {
	rows, err := r.pool.Query(ctx, `
SELECT j.id, j.date, j.amount, j.memo,
       da.id, da.code, da.name, COALESCE(dp.name, ''), da.type, da.opening_balance,
       ca.id, ca.code, ca.name, COALESCE(cp.name, ''), ca.type, ca.opening_balance
FROM journals j
JOIN accounts da ON da.id = j.debit_account_id
LEFT JOIN accounts dp ON dp.id = da.parent_id
JOIN accounts ca ON ca.id = j.credit_account_id
LEFT JOIN accounts cp ON cp.id = ca.parent_id
WHERE j.date BETWEEN $1 AND $2
  AND ($3::bigint IS NULL OR j.debit_account_id = $3 OR j.credit_account_id = $3)
ORDER BY j.date, j.id`, from, to, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalDetail
	for rows.Next() {
		var d JournalDetail
		err := rows.Scan(&d.JournalID, &d.Date, &d.Amount, &d.Memo,
			&d.DebitAccount.ID, &d.DebitAccount.Code, &d.DebitAccount.Name, &d.DebitAccount.ParentName, &d.DebitAccount.Type, &d.DebitAccount.Opening,
			&d.CreditAccount.ID, &d.CreditAccount.Code, &d.CreditAccount.Name, &d.CreditAccount.ParentName, &d.CreditAccount.Type, &d.CreditAccount.Opening)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateCachedBalance overwrites the cached balance column. Used by the
// reconciliation job after recomputing from journal aggregates.
func (r *Repository) UpdateCachedBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// TxRepository exposes the transactional operations posting flows need.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, id int64) (Account, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertJournal(ctx context.Context, j Journal) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (account_id, type, amount, description, date, source_module, source_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		t.AccountID, t.Type, t.Amount, t.Description, t.Date, t.SourceModule, t.SourceID).Scan(&id)
	return id, err
}

func (r *txRepository) InsertJournal(ctx context.Context, j Journal) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journals (date, amount, debit_account_id, credit_account_id, transaction_id, memo)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		j.Date, j.Amount, j.DebitAccountID, j.CreditAccountID, j.TransactionID, j.Memo).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (number, kind, payee_name, bank_account_id, amount, date, memo)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		p.Number, p.Kind, p.PayeeName, p.BankAccountID, p.Amount, p.Date, p.Memo).Scan(&id)
	return id, err
}

func (r *txRepository) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, accountID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
