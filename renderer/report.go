package renderer

import (
	"github.com/shopspring/decimal"

	"github.com/etnz/books"
)

// Report is the view of an assembly that templates render. Amounts are
// already formatted in the report currency.
type Report struct {
	RunID       string
	Fingerprint string
	Currency    string

	Accounts    []AccountRow
	Entries     []EntryRow
	Unaccounted []TransactionRow
	Desyncs     []DesyncRow
	Failures    []FailureRow

	Total string // sum of the source account end values
}

// AccountRow summarizes an account.
type AccountRow struct {
	Name         string
	Derived      bool
	Start        string
	End          string
	Transactions int
}

// EntryRow is a ledger entry.
type EntryRow struct {
	From, FromID string
	To, ToID     string
	Amount       string
}

// TransactionRow is a transaction of an account.
type TransactionRow struct {
	Account     string
	ID          string
	Date        string
	Amount      string
	Description string
}

// DesyncRow is a reconciliation discrepancy.
type DesyncRow struct {
	Mapping     string
	Kind        string
	Index       int
	Transaction TransactionRow
	Other       string // amount of the other side, for a delta desync
}

// FailureRow is a unit replaced by an empty result.
type FailureRow struct {
	Unit  string
	Error string
}

// NewReport builds the view of a for a currency code.
func NewReport(a *books.Assembly, currency string) *Report {
	r := &Report{RunID: a.RunID, Fingerprint: a.Fingerprint, Currency: currency}

	total := decimal.Zero
	for _, acc := range a.Sources {
		total = total.Add(acc.EndValue)
	}
	r.Total = formatAmount(total, currency)

	for _, acc := range a.Sources {
		r.Accounts = append(r.Accounts, accountRow(acc, false, currency))
	}
	for _, acc := range a.Derived {
		r.Accounts = append(r.Accounts, accountRow(acc, true, currency))
	}
	for _, e := range a.Entries {
		r.Entries = append(r.Entries, EntryRow{
			From:   e.FromAccount,
			FromID: e.FromTransactionID,
			To:     e.ToAccount,
			ToID:   e.ToTransactionID,
			Amount: formatAmount(e.Delta, currency),
		})
	}
	for _, u := range a.Unaccounted {
		r.Unaccounted = append(r.Unaccounted, transactionRow(u.Account, u.Transaction, currency))
	}
	for _, d := range a.Desyncs {
		row := DesyncRow{
			Mapping:     d.Mapping,
			Kind:        string(d.Kind),
			Index:       d.Index,
			Transaction: transactionRow(d.Account, d.Transaction, currency),
		}
		if d.Other != nil {
			row.Other = formatAmount(d.Other.Delta, currency)
		}
		r.Desyncs = append(r.Desyncs, row)
	}
	for _, f := range a.Failures {
		r.Failures = append(r.Failures, FailureRow{Unit: f.Unit, Error: f.Err.Error()})
	}
	return r
}

func accountRow(acc *books.Account, derived bool, currency string) AccountRow {
	return AccountRow{
		Name:         acc.Name,
		Derived:      derived,
		Start:        formatAmount(acc.StartValue, currency),
		End:          formatAmount(acc.EndValue, currency),
		Transactions: acc.Len(),
	}
}

func transactionRow(account string, tx books.Transaction, currency string) TransactionRow {
	return TransactionRow{
		Account:     account,
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Amount:      formatAmount(tx.Delta, currency),
		Description: tx.Description,
	}
}
