package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254 712-345-678", "254712345678"},
		{"(254) 712 345 678", "254712345678"},
		{"", ""},
		{"+", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"+254712345678", "0712 345 678", ""} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestLookupForms(t *testing.T) {
	forms := LookupForms("+254712345678")
	assert.Equal(t, []string{"+254712345678", "254712345678"}, forms)

	forms = LookupForms("254712345678")
	assert.Equal(t, []string{"254712345678", "+254712345678"}, forms)

	assert.Empty(t, LookupForms(""))
}
