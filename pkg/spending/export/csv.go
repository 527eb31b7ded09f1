// Package export moves transactions between spending stores and files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/spending"
)

// Header is the column row written by WriteCSV and expected by ReadCSV.
var Header = []string{"id", "date", "merchant", "category", "amount"}

const dateLayout = "2006-01-02"

// WriteCSV writes txs with a header row.
func WriteCSV(w io.Writer, txs []spending.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			t.ID,
			t.Date.Format(dateLayout),
			t.Merchant,
			string(t.Category),
			t.Amount.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// RowError reports a CSV row that could not be read as a transaction.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// CSVReader reads transactions for one user from CSV. Columns are found by
// header name, so their order is free; id is optional.
type CSVReader struct {
	r    *csv.Reader
	user string
	cols map[string]int
}

// NewCSVReader reads the header row and returns a reader for the records.
func NewCSVReader(r io.Reader, user string) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"date", "merchant", "category", "amount"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", name)
		}
	}
	return &CSVReader{r: cr, user: user, cols: cols}, nil
}

// Next returns the next transaction, or io.EOF when the input is exhausted.
func (c *CSVReader) Next() (spending.Transaction, error) {
	record, err := c.r.Read()
	if err != nil {
		return spending.Transaction{}, err
	}
	line, _ := c.r.FieldPos(0)

	get := func(name string) string {
		i, ok := c.cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := time.Parse(dateLayout, get("date"))
	if err != nil {
		return spending.Transaction{}, &RowError{Line: line, Err: fmt.Errorf("invalid date %q", get("date"))}
	}
	category, ok := api.ParseCategory(get("category"))
	if !ok {
		return spending.Transaction{}, &RowError{Line: line, Err: fmt.Errorf("unknown category %q", get("category"))}
	}
	amount, err := decimal.NewFromString(get("amount"))
	if err != nil {
		return spending.Transaction{}, &RowError{Line: line, Err: fmt.Errorf("invalid amount %q", get("amount"))}
	}

	id := get("id")
	if id == "" {
		id = fmt.Sprintf("%s-%s-csv%05d", c.user, date.Format("20060102"), line)
	}
	return spending.Transaction{
		ID:       id,
		User:     c.user,
		Merchant: get("merchant"),
		Category: category,
		Date:     date,
		Amount:   amount,
	}, nil
}

// ReadCSV reads every transaction in r.
func ReadCSV(r io.Reader, user string) ([]spending.Transaction, error) {
	cr, err := NewCSVReader(r, user)
	if err != nil {
		return nil, err
	}
	var txs []spending.Transaction
	for {
		t, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return txs, nil
		}
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
}
