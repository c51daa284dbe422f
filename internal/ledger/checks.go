package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// WriteCheck records a check against a bank account: one Transaction
// and one Journal per valid expense line (debit expense, credit bank),
// cached balance adjustments, and a single Payment summarising the
// check. The whole sequence commits or rolls back as one transaction.
func (s *Service) WriteCheck(ctx context.Context, input WriteCheckInput) (WriteCheckResult, error) {
	if err := input.Validate(); err != nil {
		return WriteCheckResult{}, err
	}

	lines := input.ValidLines()
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	if total.IsZero() {
		// No postable line survived validation; the submitted header
		// amount is used for the payment record. Postings are skipped.
		total = input.Amount
	}

	sourceID := uuid.New()
	var result WriteCheckResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bank, err := tx.GetAccountForUpdate(ctx, input.BankAccountID)
		if err != nil {
			return fmt.Errorf("ledger: bank account: %w", err)
		}

		for _, line := range lines {
			expense, err := tx.GetAccountForUpdate(ctx, line.AccountID)
			if err != nil {
				return fmt.Errorf("ledger: expense account %d: %w", line.AccountID, err)
			}

			trx := Transaction{
				AccountID:    expense.ID,
				Type:         TransactionDebit,
				Amount:       line.Amount,
				Description:  checkLineDescription(line, input),
				Date:         input.Date,
				SourceModule: "CHECK",
				SourceID:     sourceID,
			}
			trxID, err := tx.InsertTransaction(ctx, trx)
			if err != nil {
				return err
			}
			trx.ID = trxID

			journal := Journal{
				Date:            input.Date,
				Amount:          line.Amount,
				DebitAccountID:  expense.ID,
				CreditAccountID: bank.ID,
				TransactionID:   &trxID,
				Memo:            checkLineDescription(line, input),
			}
			journalID, err := tx.InsertJournal(ctx, journal)
			if err != nil {
				return err
			}
			journal.ID = journalID

			if err := tx.AdjustBalance(ctx, expense.ID, line.Amount); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, bank.ID, line.Amount.Neg()); err != nil {
				return err
			}

			result.Transactions = append(result.Transactions, trx)
			result.Journals = append(result.Journals, journal)
		}

		payment := Payment{
			Number:        input.CheckNumber,
			Kind:          PaymentKindCheck,
			PayeeName:     input.PayTo,
			BankAccountID: input.BankAccountID,
			Amount:        total,
			Date:          input.Date,
			Memo:          input.Memo,
		}
		paymentID, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = paymentID
		result.Payment = payment
		return nil
	})
	if err != nil {
		return WriteCheckResult{}, err
	}
	s.invalidateReports(ctx)

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "check.write",
			Entity:   "payment",
			EntityID: fmt.Sprintf("%d", result.Payment.ID),
			Meta: map[string]any{
				"check_number": input.CheckNumber,
				"amount":       total.StringFixed(2),
				"pay_to":       input.PayTo,
			},
			At: s.now(),
		})
	}
	return result, nil
}

func checkLineDescription(line CheckLine, input WriteCheckInput) string {
	if line.Memo != "" {
		return line.Memo
	}
	if input.Memo != "" {
		return input.Memo
	}
	return "Check " + input.CheckNumber
}

// PostPaired records a single debit/credit pair plus cached balance
// adjustments on behalf of a collaborating module (bill payment, PO
// payment). The pair commits atomically.
func (s *Service) PostPaired(ctx context.Context, input PairedInput) (Journal, error) {
	if err := input.Validate(); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		debit, err := tx.GetAccountForUpdate(ctx, input.DebitAccountID)
		if err != nil {
			return err
		}
		credit, err := tx.GetAccountForUpdate(ctx, input.CreditAccountID)
		if err != nil {
			return err
		}

		trx := Transaction{
			AccountID:    debit.ID,
			Type:         TransactionDebit,
			Amount:       input.Amount,
			Description:  input.Memo,
			Date:         input.Date,
			SourceModule: input.SourceModule,
			SourceID:     input.SourceID,
		}
		trxID, err := tx.InsertTransaction(ctx, trx)
		if err != nil {
			return err
		}

		journal = Journal{
			Date:            input.Date,
			Amount:          input.Amount,
			DebitAccountID:  debit.ID,
			CreditAccountID: credit.ID,
			TransactionID:   &trxID,
			Memo:            input.Memo,
		}
		journalID, err := tx.InsertJournal(ctx, journal)
		if err != nil {
			return err
		}
		journal.ID = journalID

		if err := tx.AdjustBalance(ctx, debit.ID, input.Amount); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, credit.ID, input.Amount.Neg())
	})
	if err != nil {
		return Journal{}, err
	}
	s.invalidateReports(ctx)

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.post",
			Entity:   "journal",
			EntityID: fmt.Sprintf("%d", journal.ID),
			Meta: map[string]any{
				"source_module": input.SourceModule,
				"source_id":     input.SourceID.String(),
				"amount":        input.Amount.StringFixed(2),
			},
			At: s.now(),
		})
	}
	return journal, nil
}
