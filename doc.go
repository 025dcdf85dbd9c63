// Package books turns per-account bank transaction histories into a
// consistent, auditable ledger.
//
// The core functionalities include:
//   - Transaction Identity: stable content-derived IDs for imported transactions.
//   - Accounts: immutable snapshots of a balance and its transactions.
//   - Derivation: virtual accounts (e.g. "Dining", "Rent") built by matching
//     transaction descriptions of real accounts.
//   - Reconciliation: positional pairing of internal transfers between two
//     real accounts.
//   - Assembly: merging derivations and reconciliations into ledger entries
//     while guaranteeing that no transaction is accounted for twice, and
//     listing the transactions nothing accounts for.
//
// Every stage is a pure function of its inputs. The Book type fingerprints
// those inputs and memoizes each stage in a content-hash cache (see package
// cache), so unchanged inputs are never recomputed.
//
// This package is the foundation of the `bk` command-line tool.
package books
