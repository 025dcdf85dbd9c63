package renderer

import (
	"bytes"
	"fmt"
	"strconv"

	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders the counters of a report, for a quick look after a run.
func SummaryMarkdown(r *Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Ledger Summary")
	doc.PlainText(fmt.Sprintf("Total of the source accounts: %s", r.Total))

	doc.H2("Counts")

	sources, derived := 0, 0
	for _, acc := range r.Accounts {
		if acc.Derived {
			derived++
		} else {
			sources++
		}
	}

	table := md.TableSet{
		Header: []string{"Item", "Count"},
		Rows: [][]string{
			{"Source accounts", strconv.Itoa(sources)},
			{"Derived accounts", strconv.Itoa(derived)},
			{"Ledger entries", strconv.Itoa(len(r.Entries))},
			{"Unaccounted transactions", strconv.Itoa(len(r.Unaccounted))},
			{"Desyncs", strconv.Itoa(len(r.Desyncs))},
			{"Failures", strconv.Itoa(len(r.Failures))},
		},
	}
	doc.Table(table)

	return doc.String()
}
