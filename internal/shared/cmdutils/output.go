package cmdutils

import (
	"fmt"
	"io"
)

const logo = "🐬"

// PrintResponse writes a final answer to w. Empty answers print nothing.
func PrintResponse(w io.Writer, text string) {
	if text == "" {
		return
	}

	fmt.Fprintf(w, "\n%s toolagent\n%s\n\n", logo, text)
}

// PrintHint writes a dimmed progress line such as "↳ power(base=2, exponent=10)".
func PrintHint(w io.Writer, hint string) {
	if hint == "" {
		return
	}

	fmt.Fprintf(w, "  ↳ %s\n", hint)
}
