// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package hash

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

func TestCanonicalSortsKeysAtEveryLevel(t *testing.T) {
	value := map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "m": []any{"x", 2}},
	}
	got, err := Canonical(value)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	want := `{"a":{"m":["x",2],"z":true},"b":1}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCanonicalRepresentations(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 11, 12, 345000000, time.FixedZone("CET", 3600))
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"time in utc millis", ts, `"2024-03-05T09:11:12.345Z"`},
		{"big int", huge, `"123456789012345678901234567890"`},
		{"wide int64", int64(1) << 60, `"1152921504606846976"`},
		{"safe int", 42, "42"},
		{"integral float", 3.0, "3"},
		{"fraction", 0.5, "0.5"},
		{"json number", json.Number("7.0"), "7"},
		{"bytes", []byte("hi"), `"aGk="`},
		{"html is not escaped", "<a&b>", `"<a&b>"`},
		{"struct uses json names", struct {
			B string `json:"b"`
			A int    `json:"a,omitempty"`
			C string `json:"-"`
		}{B: "x", C: "hidden"}, `{"b":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.value)
			if err != nil {
				t.Fatalf("Canonical failed: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCanonicalCycleGuard(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	got, err := Canonical(m)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	want := `{"name":"loop","self":"[Circular]"}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	type node struct {
		Name string `json:"name"`
		Next *node  `json:"next"`
	}
	n := &node{Name: "a"}
	n.Next = n
	got, err = Canonical(n)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if string(got) != `{"name":"a","next":"[Circular]"}` {
		t.Fatalf("unexpected pointer cycle output: %s", got)
	}
}

func TestCanonicalSharedReferenceIsNotCircular(t *testing.T) {
	shared := map[string]any{"k": 1}
	got, err := Canonical(map[string]any{"a": shared, "b": shared})
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	if strings.Contains(string(got), CircularMarker) {
		t.Fatalf("siblings must not be marked circular: %s", got)
	}
}

func TestCanonicalRejectsUnrepresentable(t *testing.T) {
	values := map[string]any{
		"func":    map[string]any{"fn": func() {}},
		"chan":    make(chan int),
		"nan":     math.NaN(),
		"inf":     []any{math.Inf(1)},
		"complex": complex(1, 2),
		"key":     map[float64]string{1.5: "x"},
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			_, err := Hash(v, Options{Version: 1})
			var herr *Error
			if !errors.As(err, &herr) {
				t.Fatalf("expected *hash.Error, got %v", err)
			}
			if tserrors.CodeOf(err) != tserrors.CodeHash {
				t.Fatalf("expected CodeHash, got %v", tserrors.CodeOf(err))
			}
		})
	}
}

func TestHashPurity(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.In(time.FixedZone("X", -5*3600))

	a := map[string]any{"name": "User", "fields": []any{"id", "email"}, "at": t1, "n": 1}
	b := map[string]any{"n": 1.0, "at": t2, "fields": []any{"id", "email"}, "name": "User"}

	ha, err := Hash(a, Options{Version: 1})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, err := Hash(b, Options{Version: 1})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha != hb {
		t.Fatalf("structurally equal values must hash equal: %s != %s", ha, hb)
	}
	if !IsDigest(ha) {
		t.Fatalf("expected a sha256 hex digest, got %q", ha)
	}

	b["fields"] = []any{"id", "mail"}
	hc, _ := Hash(b, Options{Version: 1})
	if hc == ha {
		t.Fatalf("changing a leaf must change the hash")
	}
}

func TestHashVersionAndSalt(t *testing.T) {
	v := map[string]string{"k": "v"}
	base, _ := Hash(v, Options{Version: 1})
	bumped, _ := Hash(v, Options{Version: 2})
	salted, _ := Hash(v, Options{Version: 1, Salt: "user"})
	if base == bumped {
		t.Errorf("version bump must change the hash")
	}
	if base == salted {
		t.Errorf("salt must change the hash")
	}
	again, _ := Hash(v, Options{Version: 1, Salt: "user"})
	if again != salted {
		t.Errorf("hash must be deterministic")
	}
}

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestMigrationTimestamp(t *testing.T) {
	tests := []struct {
		digest string
		want   string
	}{
		{strings.Repeat("0", 64), "20000101000000000000"},
		{strings.Repeat("f", 64), "20350404151515777215"},
	}
	for _, tt := range tests {
		got, err := MigrationTimestamp(tt.digest)
		if err != nil {
			t.Fatalf("MigrationTimestamp failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}

	if _, err := MigrationTimestamp("abc"); err == nil {
		t.Errorf("expected error for short digest")
	}
	if _, err := MigrationTimestamp(strings.Repeat("z", 20)); err == nil {
		t.Errorf("expected error for non-hex digest")
	}
}

func TestMigrationTimestampIsStable(t *testing.T) {
	digest, err := Hash("CREATE TABLE users (id TEXT);", Options{Version: 1, Salt: "user"})
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	first, _ := MigrationTimestamp(digest)
	second, _ := MigrationTimestamp(digest)
	if first != second || len(first) != 20 {
		t.Fatalf("expected stable 20 digit timestamp, got %q and %q", first, second)
	}
}
