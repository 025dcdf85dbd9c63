package books

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is an immutable snapshot of an account: its balance and the
// transactions leading to it.
//
// EndValue is always StartValue plus the sum of the deltas, rounded to cents.
type Account struct {
	Name         string
	StartValue   decimal.Decimal
	Transactions []Transaction
	EndValue     decimal.Decimal
}

// NewAccount creates an account and computes its end value.
func NewAccount(name string, startValue decimal.Decimal, txs []Transaction) *Account {
	return &Account{
		Name:         name,
		StartValue:   startValue,
		Transactions: txs,
		EndValue:     endValue(startValue, txs),
	}
}

// endValue sums deltas exactly and rounds half to even, which also yields 0
// for any negative zero.
func endValue(start decimal.Decimal, txs []Transaction) decimal.Decimal {
	sum := start
	for _, tx := range txs {
		sum = sum.Add(tx.Delta)
	}
	return roundCents(sum)
}

// roundCents rounds to two decimal places, normalizing -0.00 to 0.00.
func roundCents(d decimal.Decimal) decimal.Decimal {
	r := d.RoundBank(2)
	if r.IsZero() {
		return decimal.Zero
	}
	return r
}

// Len returns the number of transactions.
func (a *Account) Len() int { return len(a.Transactions) }

// IDs returns the transaction IDs in account order.
func (a *Account) IDs() []string {
	ids := make([]string, len(a.Transactions))
	for i, tx := range a.Transactions {
		ids[i] = tx.ID
	}
	return ids
}

// Transaction returns the transaction with this ID.
func (a *Account) Transaction(id string) (Transaction, bool) {
	for _, tx := range a.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// MarshalJSON implements the json.Marshaler interface for Account.
func (a *Account) MarshalJSON() ([]byte, error) {
	var w orderedObject
	w.Append("name", a.Name)
	w.Append("start_value", a.StartValue)
	w.Append("end_value", a.EndValue)
	txs := a.Transactions
	if txs == nil {
		txs = []Transaction{}
	}
	w.Append("transactions", txs)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Account. The
// end value is recomputed and must match the persisted one.
func (a *Account) UnmarshalJSON(b []byte) error {
	var temp struct {
		Name         string          `json:"name"`
		StartValue   decimal.Decimal `json:"start_value"`
		EndValue     decimal.Decimal `json:"end_value"`
		Transactions []Transaction   `json:"transactions"`
	}
	if err := json.Unmarshal(b, &temp); err != nil {
		return err
	}
	acc := NewAccount(temp.Name, temp.StartValue, temp.Transactions)
	if !acc.EndValue.Equal(temp.EndValue) {
		return fmt.Errorf("account %q: end value %s does not match transactions (%s)", temp.Name, temp.EndValue, acc.EndValue)
	}
	*a = *acc
	return nil
}
