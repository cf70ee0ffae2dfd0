// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"strings"
	"unicode"
)

// Slug converts an entity name to the lower-kebab form used in node ids and
// file names: "UserProfile" and "user_profile" both become "user-profile".
func Slug(name string) string {
	var sb strings.Builder
	prevDash, prevLower := true, false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevDash, prevLower = false, false
		case unicode.IsLower(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevDash, prevLower = false, true
		default:
			if !prevDash {
				sb.WriteByte('-')
				prevDash = true
			}
			prevLower = false
		}
	}
	return strings.Trim(sb.String(), "-")
}

// EntityID returns the id of the input node for an entity.
func EntityID(name string) string {
	return EntityKind + ":" + name
}

// ArtifactID returns the id of an output node.
func ArtifactID(kind, slug, path string) string {
	return kind + ":" + slug + ":" + path
}
