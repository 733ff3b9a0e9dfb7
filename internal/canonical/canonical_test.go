// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package canonical

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestMarshal_SortsKeysAtEveryLevel(t *testing.T) {
	in := map[string]any{
		"zeta": 1,
		"alpha": map[string]any{
			"c": true,
			"a": nil,
			"b": []any{"x"},
		},
	}

	got, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"alpha":{"a":null,"b":["x"],"c":true},"zeta":1}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestMarshal_IndependentOfFieldOrder(t *testing.T) {
	a := json.RawMessage(`{"id":"x","vault":"v","origin":{"node":"n","seqnr":1}}`)
	b := json.RawMessage(`{"origin":{"seqnr":1,"node":"n"},"vault":"v","id":"x"}`)

	ca, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal(a) error = %v", err)
	}
	cb, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal(b) error = %v", err)
	}

	if !bytes.Equal(ca, cb) {
		t.Errorf("canonical forms differ:\n a = %s\n b = %s", ca, cb)
	}
}

func TestMarshal_Idempotent(t *testing.T) {
	in := map[string]any{"k": []any{1, "two", map[string]any{"b": 2, "a": 1}}}

	once, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	twice, err := Marshal(json.RawMessage(once))
	if err != nil {
		t.Fatalf("Marshal(Marshal()) error = %v", err)
	}

	if !bytes.Equal(once, twice) {
		t.Errorf("canonicalization not idempotent:\n once  = %s\n twice = %s", once, twice)
	}
}

func TestMarshal_NumbersByValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"integer", `{"n":42}`, `{"n":42}`},
		{"integral float", `{"n":42.0}`, `{"n":42}`},
		{"exponent form", `{"n":4.2e1}`, `{"n":42}`},
		{"negative", `{"n":-7}`, `{"n":-7}`},
		{"fraction", `{"n":0.5}`, `{"n":0.5}`},
		{"zero", `{"n":0.0}`, `{"n":0}`},
		{"large int64", `{"n":9007199254740993}`, `{"n":9007199254740993}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(json.RawMessage(tt.in))
			if err != nil {
				t.Fatalf("Marshal(%s) error = %v", tt.in, err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarshal_ASCIIOnly(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ascii", "laptop", `"laptop"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"control", "a\nb", `"a\u000ab"`},
		{"latin-1", "héllo", `"h\u00e9llo"`},
		{"bmp", "パス", `"\u30d1\u30b9"`},
		{"astral pair", "\U0001f511", `"\ud83d\udd11"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal(%q) error = %v", tt.in, err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal(%q) = %s, want %s", tt.in, got, tt.want)
			}
			for _, b := range got {
				if b < 0x20 || b > 0x7e {
					t.Errorf("Marshal(%q) emitted non-printable-ascii byte 0x%02x", tt.in, b)
				}
			}
		})
	}
}

func TestMarshal_NoInsignificantWhitespace(t *testing.T) {
	in := json.RawMessage(`{ "a" : [ 1 , 2 ] ,  "b" : { "c" : "d" } }`)

	got, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"a":[1,2],"b":{"c":"d"}}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestMarshal_TrailingData(t *testing.T) {
	if _, err := Marshal(json.RawMessage(`{"a":1} {"b":2}`)); err == nil {
		t.Error("Marshal() accepted trailing data, want error")
	}
}

func TestMarshal_StructTagsApply(t *testing.T) {
	type rec struct {
		Second string `json:"second"`
		First  int    `json:"first"`
		Skip   string `json:"-"`
	}

	got, err := Marshal(rec{Second: "s", First: 1, Skip: "never"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"first":1,"second":"s"}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
