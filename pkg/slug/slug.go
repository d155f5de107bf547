// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII URL slugs for workspace names.
//
// Names arrive in English, Vietnamese and French, so accents are folded
// (including the Vietnamese 'đ', which Unicode does not decompose).
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated slugs.
const MaxLength = 64

var foldings = strings.NewReplacer("đ", "d", "Đ", "D", "ß", "ss", "æ", "ae", "œ", "oe")

// From converts an arbitrary Unicode string into a URL-safe ASCII slug.
//
// Accents are removed via NFD decomposition, runs of anything other than ASCII
// letters and digits become a single hyphen, and the result is trimmed to [MaxLength].
func From(s string) string {
	folded, _, _ := transform.String(transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC), foldings.Replace(s))

	var builder strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			pendingHyphen = false
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	result := builder.String()
	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
