package books

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid derived account or mapping definition.
// It is fatal to the affected unit only.
type ConfigurationError struct {
	Unit   string // derived account or mapping name
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %q: %s", e.Unit, e.Reason)
}

// ConsistencyError reports a violation of a ledger-wide invariant. It aborts
// the whole assembly.
type ConsistencyError struct {
	Reason string
	IDs    []string // offending transaction IDs, if any
}

func (e *ConsistencyError) Error() string {
	if len(e.IDs) == 0 {
		return "consistency error: " + e.Reason
	}
	return fmt.Sprintf("consistency error: %s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

// DataError reports a raw transaction record that cannot be identified. It is
// fatal to the affected account only.
type DataError struct {
	Account string
	Index   int // position in the raw batch, -1 when not record specific
	Err     error
}

func (e *DataError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("data error in account %q: %v", e.Account, e.Err)
	}
	return fmt.Sprintf("data error in account %q at record %d: %v", e.Account, e.Index, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// DesyncError is returned by a strict mapping whose two sides disagree.
type DesyncError struct {
	Mapping string
	Desyncs []Desync
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("mapping %q is out of sync: %d discrepancies", e.Mapping, len(e.Desyncs))
}
