package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// csvStreamer writes CSV rows through a buffered writer, flushing
// every csvFlushEvery rows so large exports stream instead of
// accumulating in memory.
type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

// writeRaw emits a line verbatim, bypassing CSV quoting. Used for the
// legacy header, which carries a space after each comma.
func (s *csvStreamer) writeRaw(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n") + "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// generalLedgerCSVHeader matches the export header downstream
// spreadsheets were built around, spaces included.
const generalLedgerCSVHeader = "Date, Reference, Account Code, Account Name, Parent Account, Debit, Credit, Description"

// WriteGeneralLedgerCSV streams the general ledger as CSV.
func WriteGeneralLedgerCSV(w io.Writer, gl GeneralLedger) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeRaw(generalLedgerCSVHeader); err != nil {
		return err
	}
	for _, row := range gl.Rows {
		record := []string{
			row.Date,
			row.Reference,
			row.AccountCode,
			row.AccountName,
			row.ParentName,
			shared.FormatAmount(row.Debit),
			shared.FormatAmount(row.Credit),
			row.Description,
		}
		if err := streamer.writeRow(record); err != nil {
			return err
		}
	}
	totals := []string{
		"", "", "", "Totals", "",
		shared.FormatAmount(gl.TotalDebit),
		shared.FormatAmount(gl.TotalCredit),
		"",
	}
	if err := streamer.writeRow(totals); err != nil {
		return err
	}
	return streamer.Close()
}

// GeneralLedgerCSVFilename names the download after the period end.
func GeneralLedgerCSVFilename(to string) string {
	return fmt.Sprintf("general_ledger_%s.csv", to)
}
