// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package hash

import (
	"fmt"
	"strconv"
)

// timestampDigits is how many leading hex characters MigrationTimestamp consumes.
const timestampDigits = 20

// MigrationTimestamp derives a sortable, wall-clock independent timestamp of
// the form YYYYMMDDhhmmssuuuuuu from a hex digest. Fixed-width slices of the
// digest are reduced into calendar ranges, so the same digest always maps to
// the same migration filename.
func MigrationTimestamp(digest string) (string, error) {
	if len(digest) < timestampDigits {
		return "", &Error{Reason: fmt.Sprintf("digest too short for timestamp: %d hex chars", len(digest))}
	}
	slice := func(from, to int) (uint64, error) {
		v, err := strconv.ParseUint(digest[from:to], 16, 64)
		if err != nil {
			return 0, &Error{Reason: fmt.Sprintf("digest is not hex: %q", digest[from:to])}
		}
		return v, nil
	}

	parts := []struct {
		from, to int
		mod, add uint64
	}{
		{0, 4, 100, 2000},    // year
		{4, 6, 12, 1},        // month
		{6, 8, 28, 1},        // day
		{8, 10, 24, 0},       // hour
		{10, 12, 60, 0},      // minute
		{12, 14, 60, 0},      // second
		{14, 20, 1000000, 0}, // microseconds
	}
	values := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := slice(p.from, p.to)
		if err != nil {
			return "", err
		}
		values[i] = v%p.mod + p.add
	}

	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d%06d",
		values[0], values[1], values[2], values[3], values[4], values[5], values[6]), nil
}
