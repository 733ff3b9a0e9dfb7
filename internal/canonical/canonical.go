// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

// Package canonical produces the deterministic byte form of a structured
// record. The canonical form is the exact input to signing and the exact
// input re-derived for verification, so a single formatting deviation
// invalidates every signature in the system.
//
// Rules: object keys appear in byte-lexicographic order at every nesting
// level, output contains only printable ASCII (everything else is \u
// escaped), and no insignificant whitespace is emitted. The encoding is a
// strict function of field values, never of their original wire form.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Marshal returns the canonical byte form of v. Two logically equal values
// canonicalize identically regardless of how they were built or decoded.
func Marshal(v any) ([]byte, error) {
	// Normalize through the json data model first so struct tags, custom
	// marshalers and map/struct distinctions cannot influence the output.
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal value: %w", err)
	}

	val, err := decode(plain)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = write(&buf, val); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decode parses data into the generic json data model, preserving numbers
// as json.Number so they can be re-rendered canonically.
func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var val any
	if err := dec.Decode(&val); err != nil {
		return nil, fmt.Errorf("canonical: decode value: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("canonical: trailing data after value")
	}

	return val, nil
}

func write(buf *bytes.Buffer, val any) error {
	switch v := val.(type) {
	case nil:
		buf.WriteString("null")

	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case json.Number:
		return writeNumber(buf, v)

	case string:
		writeString(buf, v)

	case []any:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := write(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	default:
		return fmt.Errorf("canonical: unsupported value of type %T", val)
	}

	return nil
}

// writeNumber renders a number as a function of its value, not its original
// spelling: integral values print as integers ("1.0" and "1" are the same
// value), everything else as the shortest round-tripping decimal form.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canonical: malformed number %q", n.String())
	}
	if f == float64(int64(f)) {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}

	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// writeString quotes s using only printable ASCII. Quote and backslash use
// the two-character escapes; every other rune outside 0x20..0x7E becomes a
// \uXXXX escape (a surrogate pair above the BMP).
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r >= 0x20 && r <= 0x7e:
			buf.WriteByte(byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(buf, `\u%04x`, r)
		}
	}
	buf.WriteByte('"')
}
