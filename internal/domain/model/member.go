// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// MemberRecord is a directory member as needed by the CSV export.
// Only Email participates in synchronization.
type MemberRecord struct {
	ID               int64        `json:"id"`
	Email            EmailAddress `json:"email"`
	FirstName        *string      `json:"first_name,omitempty"`
	LastName         *string      `json:"last_name,omitempty"`
	MembershipNumber *string      `json:"membership_number,omitempty"`
	Active           bool         `json:"active"`
}

// FirstNameOrEmpty returns the first name, or "" when unknown.
func (m MemberRecord) FirstNameOrEmpty() string {
	return deref(m.FirstName)
}

// LastNameOrEmpty returns the last name, or "" when unknown.
func (m MemberRecord) LastNameOrEmpty() string {
	return deref(m.LastName)
}

// MembershipNumberOrEmpty returns the membership number, or "" when unknown.
func (m MemberRecord) MembershipNumberOrEmpty() string {
	return deref(m.MembershipNumber)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GroupFilter restricts the directory to members of one group.
// ID takes precedence over Name. The zero value disables filtering.
type GroupFilter struct {
	ID   string `json:"id,omitempty" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name"`
}

// Enabled reports whether any group restriction is configured.
func (f GroupFilter) Enabled() bool {
	return f.ID != "" || f.Name != ""
}
