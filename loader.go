package books

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Output layout of a saved assembly:
//
//	run.json                     run ID and input fingerprint
//	accounts.jsonl               one summary per account, sources first
//	accounts/<name>.jsonl        the transactions of an account
//	entries.jsonl                ledger entries
//	unaccounted.jsonl            source transactions with no entry
//	desyncs.jsonl                reconciliation discrepancies
//	failures.jsonl               units replaced by empty results
//
// An account named "john/bnp" is saved to accounts/john/bnp.jsonl.
const (
	runFile         = "run.json"
	accountsFile    = "accounts.jsonl"
	accountsDir     = "accounts"
	entriesFile     = "entries.jsonl"
	unaccountedFile = "unaccounted.jsonl"
	desyncsFile     = "desyncs.jsonl"
	failuresFile    = "failures.jsonl"
)

// SaveAssembly writes the assembly into dir, replacing a previous one.
// Transaction files of accounts that no longer exist are removed.
func SaveAssembly(dir string, a *Assembly) error {
	if err := os.MkdirAll(filepath.Join(dir, accountsDir), 0755); err != nil {
		return fmt.Errorf("could not create output directory %q: %w", dir, err)
	}

	var summaries []accountSummary
	keep := make(map[string]bool)
	for _, acc := range a.Sources {
		summaries = append(summaries, summarize(acc, false))
	}
	for _, acc := range a.Derived {
		summaries = append(summaries, summarize(acc, true))
	}
	for _, acc := range a.Accounts() {
		path, err := accountPath(dir, acc.Name)
		if err != nil {
			return err
		}
		keep[path] = true
		if err := saveFile(path, func(w io.Writer) error { return EncodeTransactions(w, acc.Transactions) }); err != nil {
			return err
		}
	}

	failures := make([]failureLine, len(a.Failures))
	for i, f := range a.Failures {
		failures[i] = failureLine{Unit: f.Unit, Error: f.Err.Error()}
	}

	files := []struct {
		name   string
		encode func(io.Writer) error
	}{
		{runFile, func(w io.Writer) error { return encodeLines(w, []runLine{{RunID: a.RunID, Fingerprint: a.Fingerprint}}) }},
		{accountsFile, func(w io.Writer) error { return encodeLines(w, summaries) }},
		{entriesFile, func(w io.Writer) error { return EncodeEntries(w, a.Entries) }},
		{unaccountedFile, func(w io.Writer) error { return EncodeUnaccounted(w, a.Unaccounted) }},
		{desyncsFile, func(w io.Writer) error { return EncodeDesyncs(w, a.Desyncs) }},
		{failuresFile, func(w io.Writer) error { return encodeLines(w, failures) }},
	}
	for _, f := range files {
		if err := saveFile(filepath.Join(dir, f.name), f.encode); err != nil {
			return err
		}
	}

	// Remove stale account files.
	stale, err := findAccountPaths(filepath.Join(dir, accountsDir))
	if err != nil {
		return fmt.Errorf("could not scan %q: %w", dir, err)
	}
	for _, path := range stale {
		if keep[path] {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("could not remove stale account file %q: %w", path, err)
		}
	}
	return nil
}

// accountPath returns the transaction file of an account, refusing names
// that would escape the accounts directory.
func accountPath(dir, name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("cannot save account with name %q", name)
	}
	return filepath.Join(dir, accountsDir, filepath.FromSlash(name)+".jsonl"), nil
}

// saveFile writes a file through a temporary file in the same directory.
func saveFile(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %q: %w", path, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("error opening %q for writing: %w", path, err)
	}
	defer os.Remove(f.Name())
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	return nil
}

// LoadAssembly reads an assembly saved by SaveAssembly. The end value of
// every account is checked against its transactions.
func LoadAssembly(dir string) (*Assembly, error) {
	runs, err := loadFile[runLine](dir, runFile)
	if err != nil {
		return nil, err
	}
	a := &Assembly{}
	if len(runs) > 0 {
		a.RunID, a.Fingerprint = runs[0].RunID, runs[0].Fingerprint
	}

	summaries, err := loadFile[accountSummary](dir, accountsFile)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		acc, err := loadAccountFile(dir, s)
		if err != nil {
			return nil, err
		}
		if s.Derived {
			a.Derived = append(a.Derived, acc)
		} else {
			a.Sources = append(a.Sources, acc)
		}
	}

	if a.Entries, err = loadFile[LedgerEntry](dir, entriesFile); err != nil {
		return nil, err
	}
	if a.Unaccounted, err = loadFile[UnaccountedTransaction](dir, unaccountedFile); err != nil {
		return nil, err
	}
	if a.Desyncs, err = loadFile[Desync](dir, desyncsFile); err != nil {
		return nil, err
	}
	failures, err := loadFile[failureLine](dir, failuresFile)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		a.Failures = append(a.Failures, UnitFailure{Unit: f.Unit, Err: errors.New(f.Error)})
	}
	return a, nil
}

// loadFile decodes a JSONL file of the output directory. A missing file is empty.
func loadFile[T any](dir, name string) ([]T, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()
	return decodeLines[T](path, f)
}

// loadAccountFile reads the transactions of a summarized account.
func loadAccountFile(dir string, s accountSummary) (*Account, error) {
	path, err := accountPath(dir, s.Name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open account file %q: %w", path, err)
	}
	defer f.Close()

	txs, err := decodeLines[Transaction](path, f)
	if err != nil {
		return nil, err
	}
	acc := NewAccount(s.Name, s.StartValue, txs)
	if !acc.EndValue.Equal(s.EndValue) {
		return nil, fmt.Errorf("account %q: end value %s does not match its transactions (%s)", s.Name, s.EndValue, acc.EndValue)
	}
	return acc, nil
}

// FindAccounts returns the saved accounts whose name is query, or all of them
// for an empty query, sources first.
func FindAccounts(dir, query string) ([]*Account, error) {
	a, err := LoadAssembly(dir)
	if err != nil {
		return nil, err
	}
	var found []*Account
	for _, acc := range a.Accounts() {
		if query == "" || acc.Name == query {
			found = append(found, acc)
		}
	}
	if query != "" && len(found) == 0 {
		return nil, fmt.Errorf("could not find account %q", query)
	}
	return found, nil
}

// findAccountPaths scans a directory for account files.
func findAccountPaths(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".jsonl") {
			paths = append(paths, p)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return paths, err
}
