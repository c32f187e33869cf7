// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected EmailAddress
	}{
		{"lower-cases", "Jane.Doe@Example.ORG", "jane.doe@example.org"},
		{"trims whitespace", "  a@x.org\t\n", "a@x.org"},
		{"composes decomposed unicode", "Jose\u0301@example.org", "jos\u00e9@example.org"},
		{"already normalized", "a@x.org", "a@x.org"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEmail(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, NormalizeEmail(string(got)), "normalization is idempotent")
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"a@x.org", true},
		{"  A@X.ORG  ", true},
		{"notanemail", false},
		{"@x.org", false},
		{"a@", false},
		{"a@b@c.org", false},
		{"a b@x.org", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.input))
		})
	}
}

func TestEmailSetOperations(t *testing.T) {
	a := NewEmailSet("b@x.org", "A@x.org", " c@x.org ")
	b := NewEmailSet("c@x.org", "d@x.org")

	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Contains("a@X.org"))
	assert.Equal(t, []string{"a@x.org", "b@x.org"}, a.Difference(b).Strings())
	assert.Equal(t, []string{"c@x.org"}, a.Intersection(b).Strings())
	assert.Equal(t, []string{"a@x.org", "b@x.org", "c@x.org", "d@x.org"}, a.Union(b).Strings())
}

func TestEmailSetDuplicatesCollapse(t *testing.T) {
	set := NewEmailSet("a@x.org", "A@X.ORG", " a@x.org")
	assert.Equal(t, 1, set.Len())
}

func TestNewValidEmailSetDropsInvalid(t *testing.T) {
	set := NewValidEmailSet("a@x.org", "notanemail", "", "b@y.org")
	assert.Equal(t, []string{"a@x.org", "b@y.org"}, set.Strings())
}

func TestEmailSetCloneIsIndependent(t *testing.T) {
	original := NewEmailSet("a@x.org")
	clone := original.Clone()
	clone.Add("b@x.org")

	assert.Equal(t, 1, original.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestEmailSetSortedIsLexicographic(t *testing.T) {
	set := NewEmailSet("zed@a.org", "alpha@z.org", "mike@m.org")
	assert.Equal(t, []EmailAddress{"alpha@z.org", "mike@m.org", "zed@a.org"}, set.Sorted())
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "comments blanks and invalid lines are skipped",
			input: "# comment\n\n  A@X.ORG  \nnotanemail\n",
			want:  []string{"a@x.org"},
		},
		{
			name:  "duplicates collapse",
			input: "a@x.org\r\nA@x.org\r\nb@x.org",
			want:  []string{"a@x.org", "b@x.org"},
		},
		{
			name:  "empty file",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseAddressList(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Strings())
		})
	}
}
