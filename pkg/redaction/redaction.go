// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redaction masks personal data before it reaches the logs.
package redaction

import "strings"

const mask = "***"

// RedactEmail keeps the first character of the local part and the domain,
// e.g. "jane.doe@example.org" becomes "j***@example.org".
// Values without a usable '@' are masked completely.
func RedactEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return mask
	}
	return email[:1] + mask + email[at:]
}

// RedactEmails applies RedactEmail to every element.
func RedactEmails[S ~[]E, E ~string](emails S) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = RedactEmail(string(e))
	}
	return out
}
