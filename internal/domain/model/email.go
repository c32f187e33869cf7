// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain types of the forwarding synchronizer.
package model

import (
	"bufio"
	"io"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EmailAddress is a normalized e-mail address: trimmed, NFC and lower case.
// Two addresses are equal iff their normalized forms are equal.
type EmailAddress string

// NormalizeEmail trims surrounding whitespace, applies Unicode NFC and lower-cases.
// It is idempotent.
func NormalizeEmail(raw string) EmailAddress {
	s := strings.TrimSpace(raw)
	s = norm.NFC.String(s)
	return EmailAddress(strings.ToLower(s))
}

// IsValidEmail reports whether raw contains exactly one '@' with a non-empty
// local part and a non-empty domain after normalization.
func IsValidEmail(raw string) bool {
	return NormalizeEmail(raw).Valid()
}

// Valid reports whether the address has exactly one '@' and non-empty parts.
func (e EmailAddress) Valid() bool {
	s := string(e)
	if strings.Count(s, "@") != 1 {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	local, domain, _ := strings.Cut(s, "@")
	return local != "" && domain != ""
}

// String returns the address as a plain string.
func (e EmailAddress) String() string {
	return string(e)
}

// EmailSet is an unordered set of normalized addresses.
type EmailSet map[EmailAddress]struct{}

// NewEmailSet normalizes the given values into a set. Duplicates collapse.
// Invalid values are kept; use NewValidEmailSet to drop them.
func NewEmailSet[E ~string](values ...E) EmailSet {
	set := make(EmailSet, len(values))
	for _, v := range values {
		set.Add(string(v))
	}
	return set
}

// NewValidEmailSet normalizes the given values and keeps only valid addresses.
func NewValidEmailSet[E ~string](values ...E) EmailSet {
	set := make(EmailSet, len(values))
	for _, v := range values {
		if e := NormalizeEmail(string(v)); e.Valid() {
			set[e] = struct{}{}
		}
	}
	return set
}

// Add normalizes raw and inserts it.
func (s EmailSet) Add(raw string) EmailAddress {
	e := NormalizeEmail(raw)
	s[e] = struct{}{}
	return e
}

// Contains reports whether the normalized form of raw is a member.
func (s EmailSet) Contains(raw string) bool {
	_, ok := s[NormalizeEmail(raw)]
	return ok
}

// Len returns the number of addresses.
func (s EmailSet) Len() int {
	return len(s)
}

// Normalized returns a copy with every element re-normalized.
func (s EmailSet) Normalized() EmailSet {
	out := make(EmailSet, len(s))
	for e := range s {
		out[NormalizeEmail(string(e))] = struct{}{}
	}
	return out
}

// Sorted returns the addresses in lexicographic order of their normalized form.
func (s EmailSet) Sorted() []EmailAddress {
	return slices.Sorted(maps.Keys(s))
}

// Strings returns the sorted addresses as plain strings.
func (s EmailSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = string(e)
	}
	return out
}

// Difference returns the elements of s that are not in other.
func (s EmailSet) Difference(other EmailSet) EmailSet {
	out := make(EmailSet)
	for e := range s {
		if _, ok := other[e]; !ok {
			out[e] = struct{}{}
		}
	}
	return out
}

// Intersection returns the elements present in both sets.
func (s EmailSet) Intersection(other EmailSet) EmailSet {
	out := make(EmailSet)
	for e := range s {
		if _, ok := other[e]; ok {
			out[e] = struct{}{}
		}
	}
	return out
}

// Union returns the elements present in either set.
func (s EmailSet) Union(other EmailSet) EmailSet {
	out := make(EmailSet, len(s)+len(other))
	for e := range s {
		out[e] = struct{}{}
	}
	for e := range other {
		out[e] = struct{}{}
	}
	return out
}

// Clone returns an independent copy.
func (s EmailSet) Clone() EmailSet {
	return maps.Clone(s)
}

// ParseAddressList reads one address per line. Blank lines and lines starting
// with '#' are skipped, and so are values that are not valid addresses.
func ParseAddressList(r io.Reader) (EmailSet, error) {
	set := make(EmailSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if e := NormalizeEmail(line); e.Valid() {
			set[e] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
