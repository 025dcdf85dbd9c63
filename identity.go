package books

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"github.com/etnz/books/date"
)

// ratWidth is the width in bytes of each integer of an exact rational encoding.
const ratWidth = 16

var two128 = new(big.Int).Lsh(big.NewInt(1), 8*ratWidth)

// Identify assigns a stable ID to every transaction of an ordered batch.
//
// The ID of the transaction at position i is the 128-bit xxh3 hash of
//
//	i as 8 bytes big-endian
//	the date as "YYYY-MM-DD"
//	the timestamp as an exact rational (numerator, denominator)
//	the delta as an exact rational (numerator, denominator)
//	the description
//
// where each rational integer is a 16 bytes big-endian two's complement
// number. Numbers are hashed by value, never by their textual form.
//
// Mixing in the position makes two identical records of one batch distinct,
// as long as the batch order is stable. Reordering a batch changes its IDs.
func Identify(batch []RawTransaction) ([]Transaction, error) {
	txs := make([]Transaction, 0, len(batch))
	seen := make(map[string]int, len(batch))
	for i, raw := range batch {
		if raw.Date == "" {
			return nil, &DataError{Index: i, Err: errors.New("missing date")}
		}
		day, err := date.Parse(raw.Date)
		if err != nil {
			return nil, &DataError{Index: i, Err: err}
		}
		id, err := transactionID(i, day, raw.Timestamp, raw.Delta, raw.Description)
		if err != nil {
			return nil, &DataError{Index: i, Err: err}
		}
		if j, exists := seen[id]; exists {
			return nil, &ConsistencyError{Reason: fmt.Sprintf("records %d and %d hash to the same id", j, i), IDs: []string{id}}
		}
		seen[id] = i
		txs = append(txs, Transaction{
			ID:          id,
			Date:        day,
			Timestamp:   raw.Timestamp,
			Delta:       raw.Delta,
			Description: raw.Description,
		})
	}
	return txs, nil
}

func transactionID(i int, day date.Date, timestamp float64, delta decimal.Decimal, description string) (string, error) {
	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return "", fmt.Errorf("invalid timestamp %v", timestamp)
	}
	h := xxh3.New()

	var index [8]byte
	binary.BigEndian.PutUint64(index[:], uint64(i))
	h.Write(index[:])
	h.WriteString(day.String())

	buf := make([]byte, 0, 4*ratWidth)
	buf, err := appendRat(buf, new(big.Rat).SetFloat64(timestamp))
	if err != nil {
		return "", fmt.Errorf("timestamp %v: %w", timestamp, err)
	}
	buf, err = appendRat(buf, delta.Rat())
	if err != nil {
		return "", fmt.Errorf("delta %v: %w", delta, err)
	}
	h.Write(buf)
	h.WriteString(description)

	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}

// appendRat appends the numerator and the denominator of r, in lowest terms.
func appendRat(buf []byte, r *big.Rat) ([]byte, error) {
	buf, err := appendInt(buf, r.Num())
	if err != nil {
		return nil, err
	}
	return appendInt(buf, r.Denom())
}

// appendInt appends x as a fixed width big-endian two's complement integer.
func appendInt(buf []byte, x *big.Int) ([]byte, error) {
	if x.BitLen() >= 8*ratWidth {
		return nil, fmt.Errorf("%v does not fit in %d bytes", x, ratWidth)
	}
	v := x
	if x.Sign() < 0 {
		v = new(big.Int).Add(two128, x)
	}
	var out [ratWidth]byte
	v.FillBytes(out[:])
	return append(buf, out[:]...), nil
}
