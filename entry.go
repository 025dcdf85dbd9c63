package books

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LedgerEntry links the outflow of one transaction to the inflow of another.
//
// Over a whole assembled ledger, a transaction ID appears in at most one entry,
// on either side.
type LedgerEntry struct {
	FromAccount       string          `json:"from_account"`
	FromTransactionID string          `json:"from_transaction_id"`
	ToAccount         string          `json:"to_account"`
	ToTransactionID   string          `json:"to_transaction_id"`
	Delta             decimal.Decimal `json:"delta"`
}

// UnaccountedTransaction is a source transaction no ledger entry refers to.
type UnaccountedTransaction struct {
	Account string
	Transaction
}

// MarshalJSON flattens the transaction next to its account name.
func (u UnaccountedTransaction) MarshalJSON() ([]byte, error) {
	var w orderedObject
	w.Append("account", u.Account)
	w.Flatten(u.Transaction)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the flattened form written by MarshalJSON.
func (u *UnaccountedTransaction) UnmarshalJSON(b []byte) error {
	var head struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	var tx Transaction
	if err := tx.UnmarshalJSON(b); err != nil {
		return err
	}
	*u = UnaccountedTransaction{Account: head.Account, Transaction: tx}
	return nil
}
