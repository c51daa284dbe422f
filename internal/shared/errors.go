package shared

import "errors"

// ErrInvalidDate indicates a query date that failed to parse.
var ErrInvalidDate = errors.New("invalid date")

// UserSafeMessage returns a message suitable for display to end users.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidDate) {
		return "The supplied date is not valid. Use YYYY-MM-DD."
	}
	return err.Error()
}
