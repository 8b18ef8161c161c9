package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteWindowsArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"", `""`},
		{"has space", `"has space"`},
		{`C:\Path\To\App`, `C:\Path\To\App`},
		{`say "hi"`, `"say \"hi\""`},
		{`trailing\`, `trailing\`},
		{`"quoted with space"`, `"\"quoted with space\""`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteWindowsArg(tt.in))
		})
	}
}

func TestQuoteWindowsArgTrailingBackslashBeforeQuoteWrap(t *testing.T) {
	// An argument with a space AND a trailing backslash must double that
	// backslash, since it now sits right before the closing quote we add.
	got := QuoteWindowsArg(`some dir\`)
	assert.Equal(t, `"some dir\\"`, got)
}
