package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/projectcapital/capital/pkg/spending"
)

type jsonTransaction struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Merchant string          `json:"merchant"`
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount"`
}

// WriteJSON writes txs as an indented JSON array. Amounts are exact decimal
// numbers.
func WriteJSON(w io.Writer, txs []spending.Transaction) error {
	out := make([]jsonTransaction, len(txs))
	for i, t := range txs {
		out[i] = jsonTransaction{
			ID:       t.ID,
			Date:     t.Date.Format(dateLayout),
			Merchant: t.Merchant,
			Category: string(t.Category),
			Amount:   json.RawMessage(t.Amount.StringFixed(2)),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transactions: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	return nil
}

// Format names an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Write encodes txs in format f.
func Write(w io.Writer, f Format, txs []spending.Transaction) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, txs)
	case FormatJSON:
		return WriteJSON(w, txs)
	default:
		return fmt.Errorf("unknown export format %q (want csv or json)", f)
	}
}
