package books

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// scanCheckEvery is how many transactions are scanned between two deadline checks.
const scanCheckEvery = 1024

// matchPattern compiles one alternation of the literal match strings.
func matchPattern(strs []string) (*regexp.Regexp, error) {
	if err := validateMatchStrings(strs); err != nil {
		return nil, err
	}
	quoted := make([]string, len(strs))
	for i, s := range strs {
		quoted[i] = regexp.QuoteMeta(s)
	}
	re, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return nil, fmt.Errorf("invalid match strings %q: %w", strs, err)
	}
	return re, nil
}

// selectMatching returns the transactions of acc whose description contains
// a match of re, in account order. It gives up when ctx is done.
func selectMatching(ctx context.Context, acc *Account, re *regexp.Regexp) ([]Transaction, error) {
	var selected []Transaction
	for i, tx := range acc.Transactions {
		if i%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scanning %q: %w", acc.Name, err)
			}
		}
		if re.MatchString(tx.Description) {
			selected = append(selected, tx)
		}
	}
	return selected, nil
}
