package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  foo  ", "bar  "}, []string{"foo", "bar"}},
		{"dedupes preserving order", []string{"foo", "bar", "foo", "baz", "bar"}, []string{"foo", "bar", "baz"}},
		{"drops empty entries", []string{"foo", "", "  ", "bar"}, []string{"foo", "bar"}},
		{"preserves case", []string{"Foo", "foo", "FOO"}, []string{"Foo", "foo", "FOO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"lowercases and dedupes", []string{"Foo", "foo", "FOO"}, []string{"foo"}},
		{"trims and lowercases", []string{"  MIT.EDU ", "stanford.edu", "mit.edu"}, []string{"mit.edu", "stanford.edu"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
