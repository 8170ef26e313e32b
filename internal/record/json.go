// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Unrenderable replaces a value that has no representation in the target format.
const Unrenderable = "<unrenderable>"

// MarshalJSON encodes r as a JSON object with fields in order. Values with no
// JSON form are written as the Unrenderable placeholder string.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	appendValue(&buf, r)
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into r, keeping field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	rec, ok := v.(*Record)
	if !ok {
		return fmt.Errorf("record: expected JSON object, got %s", KindOf(v))
	}
	*r = *rec
	return nil
}

// CompactJSON returns the compact JSON form of a value.
func CompactJSON(v any) []byte {
	var buf bytes.Buffer
	appendValue(&buf, Normalize(v))
	return buf.Bytes()
}

// ParseJSON decodes a complete JSON document. Objects become *Record with
// their field order preserved and numbers become json.Number.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := DecodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("record: unexpected data after JSON value")
	}
	return v, nil
}

// DecodeValue reads the next JSON value from dec. The decoder should have
// UseNumber enabled so numbers keep their source text.
func DecodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		if f, isFloat := tok.(float64); isFloat {
			return normalizeFloat(f, 64), nil
		}
		return tok, nil
	}

	switch delim {
	case '{':
		rec := New()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("record: object key is %T", keyTok)
			}
			value, err := DecodeValue(dec)
			if err != nil {
				return nil, err
			}
			rec.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return rec, nil
	case '[':
		items := []any{}
		for dec.More() {
			value, err := DecodeValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, fmt.Errorf("record: unexpected delimiter %q", delim)
}

func appendValue(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case json.Number:
		if !validNumber(t) {
			appendString(buf, Unrenderable)
			return
		}
		buf.WriteString(string(t))
	case string:
		appendString(buf, t)
	case *Record:
		if t == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, k)
			buf.WriteByte(':')
			appendValue(buf, t.values[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendValue(buf, e)
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(t)
		if err != nil {
			appendString(buf, Unrenderable)
			return
		}
		buf.Write(b)
	}
}

func appendString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

func validNumber(n json.Number) bool {
	if n == "" {
		return false
	}
	_, err := strconv.ParseFloat(string(n), 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}
