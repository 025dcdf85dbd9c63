package books

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// orderedObject builds a JSON object whose members keep the order they are
// added in: persisted files stay stable and diff well. The zero value is an
// empty object. The first marshaling error sticks and is returned by
// MarshalJSON.
type orderedObject struct {
	members [][]byte
	err     error
}

// Append adds a member.
func (o *orderedObject) Append(key string, value any) *orderedObject {
	if o.err != nil {
		return o
	}
	v, err := json.Marshal(value)
	if err != nil {
		o.err = fmt.Errorf("member %q: %w", key, err)
		return o
	}
	k, _ := json.Marshal(key)
	o.members = append(o.members, append(append(k, ':'), v...))
	return o
}

// Optional adds a string member unless it is empty.
func (o *orderedObject) Optional(key, value string) *orderedObject {
	if value == "" {
		return o
	}
	return o.Append(key, value)
}

// Flatten adds the members of the JSON object v marshals to.
func (o *orderedObject) Flatten(v any) *orderedObject {
	if o.err != nil {
		return o
	}
	b, err := json.Marshal(v)
	if err != nil {
		o.err = fmt.Errorf("flatten: %w", err)
		return o
	}
	b = bytes.TrimSpace(b)
	if len(b) < 2 || b[0] != '{' || b[len(b)-1] != '}' {
		o.err = fmt.Errorf("flatten: %T is not a JSON object", v)
		return o
	}
	if inner := bytes.TrimSpace(b[1 : len(b)-1]); len(inner) > 0 {
		o.members = append(o.members, inner)
	}
	return o
}

// MarshalJSON implements json.Marshaler.
func (o *orderedObject) MarshalJSON() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	var b bytes.Buffer
	b.WriteByte('{')
	b.Write(bytes.Join(o.members, []byte{','}))
	b.WriteByte('}')
	return b.Bytes(), nil
}
