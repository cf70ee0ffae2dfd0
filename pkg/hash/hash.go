// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package hash computes deterministic, order-independent content hashes.
//
// Values are serialised to a canonical JSON text (object keys sorted at every
// level, arrays in order, times in UTC ISO-8601, wide integers as decimal
// strings) and digested with SHA-256 together with a scheme version and an
// optional salt. The same logical value always yields the same hex digest,
// regardless of map iteration order or numeric representation.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// Options controls how a value is digested.
type Options struct {
	// Version is the logical version of the hashing scheme. Bumping it
	// invalidates every previously computed hash.
	Version int
	// Salt separates otherwise identical payloads (for example an entity slug).
	Salt string
}

// Error reports a value that cannot be represented deterministically.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("hash: %s", e.Reason)
	}
	return fmt.Sprintf("hash: %s at %s", e.Reason, e.Path)
}

// ErrorCode implements errors.Coded.
func (e *Error) ErrorCode() tserrors.ErrorCode {
	return tserrors.CodeHash
}

// Hash returns the lowercase hex SHA-256 digest of value's canonical form.
func Hash(value any, opts Options) (string, error) {
	payload, err := Canonical(value)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	writeField(h, []byte(strconv.Itoa(opts.Version)))
	writeField(h, []byte(opts.Salt))
	writeField(h, payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sum returns the lowercase hex SHA-256 digest of raw bytes.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsDigest reports whether s looks like a hex SHA-256 digest.
func IsDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

// writeField writes a length-prefixed field so that ("ab","c") and ("a","bc")
// never produce the same digest input.
func writeField(w byteWriter, data []byte) {
	var prefix [8]byte
	n := uint64(len(data))
	for i := 7; i >= 0; i-- {
		prefix[i] = byte(n)
		n >>= 8
	}
	w.Write(prefix[:])
	w.Write(data)
}
