package ap

// LedgerPostError indicates the payment row was committed but the
// paired journal could not be posted. The reconcile job catches the
// cached balances up; callers should surface the message as a warning
// rather than fail the payment.
type LedgerPostError struct {
	Err     error
	Message string
}

func (e *LedgerPostError) Error() string {
	return e.Message
}

func (e *LedgerPostError) Unwrap() error {
	return e.Err
}

func wrapLedgerPostError(err error) *LedgerPostError {
	if err == nil {
		return nil
	}
	return &LedgerPostError{
		Err:     err,
		Message: "payment recorded but journal posting failed",
	}
}
