// Package source reads source accounts from folders of bank exports.
//
// A source folder holds one sub-directory per account. Any directory with an
// account.yaml file is an account, named by its path relative to the root
// ("john/bnp"). The account.yaml file gives the start value and describes the
// export files:
//
//	start_value: 1200.50
//	format:
//	  kind: csv
//	  glob: "*.csv"
//	  comma: ";"
//	  header: true
//	  date_layout: "02/01/2006"
//	  decimal_comma: true
//	  columns:
//	    date: Date
//	    description: Label
//	    debit: Debit
//	    credit: Credit
//
// Export files are read in name order and their records are stable-sorted by
// timestamp once. The mapping is declarative: no code runs on import.
package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etnz/books/date"
)

// Kinds of export files.
const (
	KindCSV  = "csv"
	KindJSON = "json"
)

// Format describes how the export files of an account map to transactions.
type Format struct {
	Kind string `yaml:"kind"`
	// Glob selects the export files in the account directory.
	// Defaults to "*.csv" or "*.json".
	Glob string `yaml:"glob"`

	// CSV only.
	Comma    string `yaml:"comma"`     // field separator, defaults to ","
	SkipRows int    `yaml:"skip_rows"` // rows ignored at the top of each file
	Header   bool   `yaml:"header"`    // columns are named by the first row, otherwise by index

	// JSON only: the jsonpath of the record list, defaults to "$[*]".
	Records string `yaml:"records"`

	DateLayout   string `yaml:"date_layout"`   // Go layout, defaults to "2006-01-02"
	DecimalComma bool   `yaml:"decimal_comma"` // "1.234,56" instead of "1,234.56"
	Negate       bool   `yaml:"negate"`        // the bank exports outflows as positive amounts

	Columns Columns `yaml:"columns"`
}

// Columns names the source of each transaction field: a header name or a
// zero-based index for CSV, a jsonpath relative to the record for JSON.
//
// Delta is either one signed column or a Debit and a Credit column. Timestamp
// is in seconds since the epoch; it defaults to the date at midnight UTC.
type Columns struct {
	Date        string `yaml:"date"`
	Delta       string `yaml:"delta"`
	Description string `yaml:"description"`
	Timestamp   string `yaml:"timestamp"`
	Debit       string `yaml:"debit"`
	Credit      string `yaml:"credit"`
}

// withDefaults returns f with its defaults filled in.
func (f Format) withDefaults() Format {
	if f.Glob == "" {
		f.Glob = "*." + f.Kind
	}
	if f.Comma == "" {
		f.Comma = ","
	}
	if f.Records == "" {
		f.Records = "$[*]"
	}
	if f.DateLayout == "" {
		f.DateLayout = time.DateOnly
	}
	return f
}

// Validate checks that f describes every transaction field.
func (f Format) Validate() error {
	var errs []error
	switch f.Kind {
	case KindCSV:
		if len([]rune(f.Comma)) > 1 {
			errs = append(errs, fmt.Errorf("comma must be a single character, got %q", f.Comma))
		}
		if !f.Header {
			for _, col := range f.Columns.list() {
				if _, err := strconv.Atoi(col); col != "" && err != nil {
					errs = append(errs, fmt.Errorf("without header, column %q must be an index", col))
				}
			}
		}
	case KindJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown format kind %q", f.Kind))
	}
	c := f.Columns
	if c.Date == "" {
		errs = append(errs, errors.New("missing date column"))
	}
	if c.Description == "" {
		errs = append(errs, errors.New("missing description column"))
	}
	split := c.Debit != "" || c.Credit != ""
	switch {
	case c.Delta == "" && !split:
		errs = append(errs, errors.New("missing delta column, or debit and credit columns"))
	case c.Delta != "" && split:
		errs = append(errs, errors.New("delta cannot be combined with debit and credit columns"))
	case split && (c.Debit == "" || c.Credit == ""):
		errs = append(errs, errors.New("debit and credit columns go together"))
	}
	return errors.Join(errs...)
}

func (c Columns) list() []string {
	return []string{c.Date, c.Delta, c.Description, c.Timestamp, c.Debit, c.Credit}
}

// parseAmount reads a bank amount, with its thousands separators.
func (f Format) parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(s)
	if f.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseDelta computes the signed delta, rounded to cents.
func (f Format) parseDelta(delta, debit, credit string) (decimal.Decimal, error) {
	var d decimal.Decimal
	if f.Columns.Delta != "" {
		v, err := f.parseAmount(delta)
		if err != nil {
			return d, err
		}
		d = v
	} else {
		// an empty side is zero, debit is exported as a positive outflow.
		for _, side := range []struct {
			s    string
			sign int64
		}{{debit, -1}, {credit, 1}} {
			if strings.TrimSpace(side.s) == "" {
				continue
			}
			v, err := f.parseAmount(side.s)
			if err != nil {
				return d, err
			}
			d = d.Add(v.Abs().Mul(decimal.NewFromInt(side.sign)))
		}
	}
	if f.Negate {
		d = d.Neg()
	}
	return d.RoundBank(2), nil
}

// parseDate returns the date as "YYYY-MM-DD" and its midnight UTC timestamp.
func (f Format) parseDate(s string) (string, float64, error) {
	day, err := date.ParseLayout(f.DateLayout, s)
	if err != nil {
		return "", 0, err
	}
	return day.String(), float64(day.Midnight().Unix()), nil
}

// parseTimestamp reads seconds since the epoch.
func parseTimestamp(s string) (float64, error) {
	ts, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return ts, nil
}
