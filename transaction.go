package books

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/etnz/books/date"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// RawTransaction is a bank record as a source provider yields it, before it
// gets an identity.
type RawTransaction struct {
	Date        string          // "YYYY-MM-DD"
	Delta       decimal.Decimal // signed, in major currency units
	Description string
	Timestamp   float64 // seconds since the epoch
}

// Transaction is an identified, immutable transaction.
//
// Transactions of a derived account reference the source transaction they
// mirror through SourceAccount and SourceID; they are facts of their own,
// with their own ID.
type Transaction struct {
	ID            string
	Date          date.Date
	Timestamp     float64
	Delta         decimal.Decimal
	Description   string
	SourceAccount string // derived accounts only
	SourceID      string // derived accounts only
}

// Raw returns the identity-free content of t.
func (t Transaction) Raw() RawTransaction {
	return RawTransaction{
		Date:        t.Date.String(),
		Delta:       t.Delta,
		Description: t.Description,
		Timestamp:   t.Timestamp,
	}
}

// IsDerived reports whether t mirrors a transaction of another account.
func (t Transaction) IsDerived() bool { return t.SourceID != "" }

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w orderedObject
	w.Append("id", t.ID)
	w.Append("date", t.Date)
	w.Append("timestamp", t.Timestamp)
	w.Append("delta", t.Delta)
	w.Append("description", t.Description)
	w.Optional("source_account", t.SourceAccount)
	w.Optional("source_id", t.SourceID)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transaction.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var temp struct {
		ID            string          `json:"id"`
		Date          date.Date       `json:"date"`
		Timestamp     float64         `json:"timestamp"`
		Delta         decimal.Decimal `json:"delta"`
		Description   string          `json:"description"`
		SourceAccount string          `json:"source_account"`
		SourceID      string          `json:"source_id"`
	}
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}
	if temp.ID == "" {
		return fmt.Errorf("transaction without id: %s", b)
	}
	*t = Transaction(temp)
	return nil
}
