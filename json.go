package jsonsql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON parses a JSON descriptor. Objects decode to D so their key order
// is kept, numbers decode to json.Number.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("jsonsql: unexpected data after descriptor")
	}
	return v, nil
}

// maxDecodeDepth matches the nesting limit of encoding/json.
const maxDecodeDepth = 10000

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if depth++; depth > maxDecodeDepth {
		return nil, fmt.Errorf("%w: more than %d levels of JSON", ErrDescriptorTooDeep, maxDecodeDepth)
	}
	switch delim {
	case '{':
		d := D{}
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec, depth)
			if err != nil {
				return nil, err
			}
			d = append(d, KV{Key: key.(string), Value: v})
		}
		_, err = dec.Token()
		return d, err
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec, depth)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		_, err = dec.Token()
		return list, err
	}
	return nil, fmt.Errorf("jsonsql: unexpected %v", delim)
}

// MarshalJSON encodes d as an object with its keys in order.
func (d D) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
