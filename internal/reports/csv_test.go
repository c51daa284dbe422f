package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteGeneralLedgerCSV(t *testing.T) {
	gl := BuildGeneralLedger(glFixture())

	var buf bytes.Buffer
	require.NoError(t, WriteGeneralLedgerCSV(&buf, gl))

	lines := strings.Split(buf.String(), "\r\n")
	require.Equal(t, "Date, Reference, Account Code, Account Name, Parent Account, Debit, Credit, Description", lines[0])
	require.Equal(t, "2024-01-10,JRN-000007,1000,Cash,,100.00,0.00,Cash sale", lines[1])

	// Totals row, then the trailing CRLF leaves one empty segment.
	require.Equal(t, ",,,Totals,,140.00,140.00,", lines[len(lines)-2])
	require.Equal(t, "", lines[len(lines)-1])
}

func TestGeneralLedgerCSVFilename(t *testing.T) {
	require.Equal(t, "general_ledger_2024-06-30.csv", GeneralLedgerCSVFilename("2024-06-30"))
}
