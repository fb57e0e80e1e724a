package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https with www path and query", "https://WWW.Example.com/path?x=1", "example.com"},
		{"bare host with port", "example.com:8080", "example.com"},
		{"mixed case bare host", "Example.com", "example.com"},
		{"http scheme", "http://acmedrywall.com/", "acmedrywall.com"},
		{"subdomain preserved", "https://shop.acme.co.uk/cart", "shop.acme.co.uk"},
		{"www with port", "https://www.acme.com:443/a/b", "acme.com"},
		{"fragment stripped", "acme.com/#contact", "acme.com"},
		{"whitespace", "  acme.com  ", "acme.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWebsite(tt.in))
		})
	}
}

func TestNormalizeWebsite_RoundTrip(t *testing.T) {
	// Inputs that must all collapse to the same dedup key.
	inputs := []string{
		"https://WWW.Example.com/path?x=1",
		"example.com:8080",
		"Example.com",
	}
	for _, in := range inputs {
		assert.Equal(t, "example.com", NormalizeWebsite(in), "input %q", in)
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.False(t, JobStatusActive.IsTerminal())
}
