// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sieve

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

var redirectPattern = regexp.MustCompile(`(?i)redirect\s+(?::copy\s+)?"((?:[^"\\]|\\.)+)"`)

// BuildScript renders a Sieve script redirecting to every address in sorted order.
func BuildScript(addresses model.EmailSet, keepLocalCopy bool) string {
	var b strings.Builder
	b.WriteString("# mail-forward-sync\n")
	b.WriteString("# Generated forwarding script, do not edit by hand.\n")
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Forwarding addresses: %d\n", addresses.Len())
	b.WriteString("#\n\n")

	if keepLocalCopy {
		b.WriteString("require [\"copy\", \"redirect\"];\n\n")
	} else {
		b.WriteString("require [\"redirect\"];\n\n")
	}

	for _, e := range addresses.Sorted() {
		if keepLocalCopy {
			fmt.Fprintf(&b, "redirect :copy %s;\n", quote(e.String()))
		} else {
			fmt.Fprintf(&b, "redirect %s;\n", quote(e.String()))
		}
	}
	return b.String()
}

// ParseScript extracts the redirect targets of a script. Values without an
// '@' are ignored.
func ParseScript(script string) model.EmailSet {
	set := make(model.EmailSet)
	for _, m := range redirectPattern.FindAllStringSubmatch(script, -1) {
		if e := model.NormalizeEmail(unquote(m[1])); e.Valid() {
			set[e] = struct{}{}
		}
	}
	return set
}

// unquote reverses quote for the body of a quoted string.
func unquote(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// scriptSafe reports whether an address can be written to a script as is.
// Quotes, backslashes and control characters are refused.
func scriptSafe(email string) bool {
	return !strings.ContainsFunc(email, func(r rune) bool {
		return r == '"' || r == '\\' || unicode.IsControl(r)
	})
}
