package books

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// This file persists assembled ledgers as JSONL streams: one JSON object per
// line, keys in a fixed order, so that outputs stay human-readable and
// git-friendly.

// encodeLines writes one JSON line per item.
func encodeLines[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("persist error: cannot marshal line: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("persist error: cannot write line: %w", err)
		}
	}
	return nil
}

// decodeLines reads one T per non empty line. name is for error messages only.
func decodeLines[T any](name string, r io.Reader) ([]T, error) {
	var list []T
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parse error %s:%d: %w", name, i, err)
		}
		list = append(list, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return list, nil
}

// EncodeTransactions writes transactions in JSONL format.
func EncodeTransactions(w io.Writer, txs []Transaction) error { return encodeLines(w, txs) }

// DecodeTransactions reads transactions written by EncodeTransactions.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	return decodeLines[Transaction]("transactions", r)
}

// EncodeEntries writes ledger entries in JSONL format.
func EncodeEntries(w io.Writer, entries []LedgerEntry) error { return encodeLines(w, entries) }

// DecodeEntries reads ledger entries written by EncodeEntries.
func DecodeEntries(r io.Reader) ([]LedgerEntry, error) {
	return decodeLines[LedgerEntry]("entries", r)
}

// EncodeUnaccounted writes unaccounted transactions in JSONL format.
func EncodeUnaccounted(w io.Writer, list []UnaccountedTransaction) error {
	return encodeLines(w, list)
}

// DecodeUnaccounted reads unaccounted transactions written by EncodeUnaccounted.
func DecodeUnaccounted(r io.Reader) ([]UnaccountedTransaction, error) {
	return decodeLines[UnaccountedTransaction]("unaccounted", r)
}

// EncodeDesyncs writes reconciliation desyncs in JSONL format.
func EncodeDesyncs(w io.Writer, list []Desync) error { return encodeLines(w, list) }

// DecodeDesyncs reads desyncs written by EncodeDesyncs.
func DecodeDesyncs(r io.Reader) ([]Desync, error) {
	return decodeLines[Desync]("desyncs", r)
}

// accountSummary is a line of the accounts index.
type accountSummary struct {
	Name         string          `json:"name"`
	Derived      bool            `json:"derived,omitempty"`
	StartValue   decimal.Decimal `json:"start_value"`
	EndValue     decimal.Decimal `json:"end_value"`
	Transactions int             `json:"transactions"`
}

func summarize(acc *Account, derived bool) accountSummary {
	return accountSummary{
		Name:         acc.Name,
		Derived:      derived,
		StartValue:   acc.StartValue,
		EndValue:     acc.EndValue,
		Transactions: acc.Len(),
	}
}

// failureLine is a UnitFailure as persisted.
type failureLine struct {
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

// runLine identifies the run that produced the outputs.
type runLine struct {
	RunID       string `json:"run_id"`
	Fingerprint string `json:"fingerprint,omitempty"`
}
