package books

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/xxh3"
)

// fingerprint hashes parts with xxh3-128. Each part is length prefixed, so
// that moving bytes from one part to the next changes the fingerprint.
func fingerprint(parts ...[]byte) string {
	h := xxh3.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

// canonical returns the JSON encoding of v. Struct fields are encoded in
// declaration order, so equal definitions always give equal bytes.
func canonical(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// configuration types only hold strings, booleans and decimals.
		panic(err)
	}
	return b
}
