package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$1,234.56", FormatMoney(decimal.RequireFromString("1234.56")))
	require.Equal(t, "$0.00", FormatMoney(decimal.Zero))
	require.Equal(t, "$150.00", FormatMoney(decimal.RequireFromString("150")))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1234.50", FormatAmount(decimal.RequireFromString("1234.5")))
	require.Equal(t, "0.00", FormatAmount(decimal.Zero))
}
