package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/etnz/books"
)

// fieldFunc returns the value of a column of the current record.
type fieldFunc func(col string) (string, error)

// transaction maps one record to a raw transaction.
func (f Format) transaction(field fieldFunc) (books.RawTransaction, error) {
	c := f.Columns
	get := func(col string) (string, error) {
		if col == "" {
			return "", nil
		}
		return field(col)
	}
	// optional columns are empty when absent from the record.
	optional := func(col string) string {
		v, _ := get(col)
		return v
	}

	var raw books.RawTransaction
	dateStr, err := get(c.Date)
	if err != nil {
		return raw, err
	}
	day, midnight, err := f.parseDate(dateStr)
	if err != nil {
		return raw, err
	}

	var deltaStr string
	if c.Delta != "" {
		if deltaStr, err = get(c.Delta); err != nil {
			return raw, err
		}
	}
	delta, err := f.parseDelta(deltaStr, optional(c.Debit), optional(c.Credit))
	if err != nil {
		return raw, err
	}

	description, err := get(c.Description)
	if err != nil {
		return raw, err
	}

	ts := midnight
	if c.Timestamp != "" {
		s, err := get(c.Timestamp)
		if err != nil {
			return raw, err
		}
		if ts, err = parseTimestamp(s); err != nil {
			return raw, err
		}
	}

	return books.RawTransaction{
		Date:        day,
		Delta:       delta,
		Description: strings.TrimSpace(description),
		Timestamp:   ts,
	}, nil
}

// readCSV reads the records of a CSV export. name is for error messages only.
func (f Format) readCSV(name string, r io.Reader) ([]books.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = []rune(f.Comma)[0]
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var raws []books.RawTransaction
	var header map[string]int
	rows := 0
	for {
		cols, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rows++
		if rows <= f.SkipRows {
			continue
		}
		if f.Header && header == nil {
			header = make(map[string]int, len(cols))
			for i, h := range cols {
				header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
			}
			continue
		}
		if blank(cols) {
			continue
		}

		line, _ := cr.FieldPos(0)
		raw, err := f.transaction(func(col string) (string, error) {
			i, ok := header[col]
			if !f.Header {
				i, _ = strconv.Atoi(col)
				ok = true
			}
			if !ok || i < 0 || i >= len(cols) {
				return "", fmt.Errorf("no column %q", col)
			}
			return cols[i], nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readJSON reads the records of a JSON export. name is for error messages only.
func (f Format) readJSON(name string, r io.Reader) ([]books.RawTransaction, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: not a correct json: %w", name, err)
	}
	v, err := jsonpath.Get(f.Records, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: records %q: %w", name, f.Records, err)
	}
	records, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: records %q is not a list", name, f.Records)
	}

	raws := make([]books.RawTransaction, 0, len(records))
	for i, rec := range records {
		raw, err := f.transaction(func(col string) (string, error) {
			return f.jsonField(rec, col)
		})
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", name, i, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// jsonField evaluates a column path on a record, as a string.
func (f Format) jsonField(rec any, path string) (string, error) {
	v, err := jsonpath.Get(path, rec)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", path, err)
	}
	// jsonpath returns a list for any wildcard or filter: keep the first answer.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return "", fmt.Errorf("column %q: no value", path)
		}
		v = list[0]
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		if f.DecimalComma {
			// numbers always use a decimal point.
			return strings.ReplaceAll(x.String(), ".", ","), nil
		}
		return x.String(), nil
	case bool, float64:
		return fmt.Sprint(x), nil
	default:
		return "", errors.New("column " + strconv.Quote(path) + " is not a scalar")
	}
}
