package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// ReportingRole tags accounts consumed by the cash flow builder. The
// original system located these accounts by exact name match; the tag
// makes renaming safe.
type ReportingRole string

const (
	RoleBank       ReportingRole = "BANK"
	RoleReceivable ReportingRole = "RECEIVABLE"
	RoleInventory  ReportingRole = "INVENTORY"
	RolePayable    ReportingRole = "PAYABLE"
)

// TransactionType labels which side of the ledger a transaction header
// represents.
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

// PaymentKind distinguishes payment records by origin.
type PaymentKind string

const (
	PaymentKindCheck PaymentKind = "CHECK"
	PaymentKindBill  PaymentKind = "BILL"
	PaymentKindPO    PaymentKind = "PO"
)

// Account models a chart of accounts node. Balance is a write-through
// cache maintained by posting operations and reconciled by the
// background worker; the Aggregation Engine remains the source of truth.
type Account struct {
	ID             int64
	Code           string
	Name           string
	Type           AccountType
	ParentID       *int64
	ReportingRole  *ReportingRole
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
	IsActive       bool
	SortOrder      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsSubAccount reports whether the account has a parent.
func (a Account) IsSubAccount() bool {
	return a.ParentID != nil
}

// Journal is one double-entry posting: a single positive amount that
// debits one account and credits another. Journals are append-only and
// never updated or deleted.
type Journal struct {
	ID              int64
	Date            time.Time
	Amount          decimal.Decimal
	DebitAccountID  int64
	CreditAccountID int64
	TransactionID   *int64
	Memo            string
	CreatedAt       time.Time
}

// Transaction is the header anchoring one or more journal postings,
// e.g. one check line.
type Transaction struct {
	ID           int64
	AccountID    int64
	Type         TransactionType
	Amount       decimal.Decimal
	Description  string
	Date         time.Time
	SourceModule string
	SourceID     uuid.UUID
	CreatedAt    time.Time
}

// Payment summarises a whole disbursement (one check, one bill payment).
type Payment struct {
	ID            int64
	Number        string
	Kind          PaymentKind
	PayeeName     string
	BankAccountID int64
	Amount        decimal.Decimal
	Date          time.Time
	Memo          string
	CreatedAt     time.Time
}

// AccountRef is the slim account projection carried on journal detail
// rows for report construction.
type AccountRef struct {
	ID         int64
	Code       string
	Name       string
	ParentName string
	Type       AccountType
	Opening    decimal.Decimal
}

// JournalDetail joins a journal posting with both participating accounts.
type JournalDetail struct {
	JournalID     int64
	Date          time.Time
	Amount        decimal.Decimal
	Memo          string
	DebitAccount  AccountRef
	CreditAccount AccountRef
}

// BalanceLookup is the payload of the account balance endpoint.
type BalanceLookup struct {
	Balance     decimal.Decimal `json:"balance"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
}

var (
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountHasChildren blocks deletion of a parent account.
	ErrAccountHasChildren = errors.New("ledger: account has sub-accounts")
	// ErrAccountHasPostings blocks deletion of a posted-to account.
	ErrAccountHasPostings = errors.New("ledger: account has journal postings")
	// ErrOwnParent rejects an account referencing itself as parent.
	ErrOwnParent = errors.New("ledger: account cannot be its own parent")
	// ErrParentDepth rejects nesting below one level of sub-accounts.
	ErrParentDepth = errors.New("ledger: parent must be a top-level account")
	// ErrParentTypeMismatch rejects a sub-account typed differently from its parent.
	ErrParentTypeMismatch = errors.New("ledger: sub-account type must match parent type")
	// ErrTypeImmutable rejects changing an account's type after creation.
	ErrTypeImmutable = errors.New("ledger: account type is immutable")
	// ErrDuplicateCode indicates the account code is taken.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrNoExpenseLines indicates a check submitted without any expense line.
	ErrNoExpenseLines = errors.New("ledger: at least one expense line is required")
	// ErrNonPositiveAmount rejects zero or negative posting amounts.
	ErrNonPositiveAmount = errors.New("ledger: amount must be positive")
)

// CreateAccountInput groups fields for creating an account.
type CreateAccountInput struct {
	Code           string
	Name           string
	Type           AccountType
	ParentID       *int64
	ReportingRole  *ReportingRole
	OpeningBalance decimal.Decimal
	SortOrder      int
	ActorID        int64
}

// UpdateAccountInput groups fields for editing account metadata.
// Type, when supplied, must match the stored type: it is immutable
// post-creation.
type UpdateAccountInput struct {
	ID            int64
	Code          string
	Name          string
	Type          AccountType
	ParentID      *int64
	ReportingRole *ReportingRole
	IsActive      bool
	SortOrder     int
	ActorID       int64
}

// CheckLine is one expense line of a written check.
type CheckLine struct {
	AccountID int64
	Amount    decimal.Decimal
	Memo      string
}

// Empty reports whether the line carries no usable data at all.
func (l CheckLine) Empty() bool {
	return l.AccountID == 0 && l.Amount.IsZero() && l.Memo == ""
}

// Valid reports whether the line can be posted.
func (l CheckLine) Valid() bool {
	return l.AccountID != 0 && l.Amount.IsPositive()
}

// WriteCheckInput carries a check-writing request.
type WriteCheckInput struct {
	BankAccountID int64
	PayTo         string
	PayToAddress  string
	Date          time.Time
	CheckNumber   string
	Amount        decimal.Decimal
	Memo          string
	PrintLater    bool
	PayOnline     bool
	Lines         []CheckLine
	ActorID       int64
}

// ValidLines returns the postable expense lines.
func (in WriteCheckInput) ValidLines() []CheckLine {
	out := make([]CheckLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Valid() {
			out = append(out, l)
		}
	}
	return out
}

// Validate checks the minimum criteria before any write happens.
func (in WriteCheckInput) Validate() error {
	if in.BankAccountID == 0 {
		return errors.New("ledger: bank account required")
	}
	hasLine := false
	for _, l := range in.Lines {
		if !l.Empty() {
			hasLine = true
		}
		if l.Amount.IsNegative() {
			return ErrNonPositiveAmount
		}
	}
	if !hasLine {
		return ErrNoExpenseLines
	}
	return nil
}

// WriteCheckResult reports what a committed check produced.
type WriteCheckResult struct {
	Payment      Payment
	Transactions []Transaction
	Journals     []Journal
}

// PairedInput posts a single debit/credit pair outside of check writing.
// Collaborating modules (bill payment, PO payment) use it to reach the
// ledger without duplicating posting mechanics.
type PairedInput struct {
	Date            time.Time
	Amount          decimal.Decimal
	DebitAccountID  int64
	CreditAccountID int64
	Memo            string
	SourceModule    string
	SourceID        uuid.UUID
	ActorID         int64
}

// Validate ensures the pair can be posted.
func (in PairedInput) Validate() error {
	if !in.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if in.DebitAccountID == 0 || in.CreditAccountID == 0 {
		return errors.New("ledger: both debit and credit accounts are required")
	}
	return nil
}
