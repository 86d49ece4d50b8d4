package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/richinex/mentorspace/llm"
)

// ListProviders prints every supported provider with its default model and
// whether its API key is set.
func ListProviders(out io.Writer) {
	fmt.Fprintln(out, "Available providers:")
	fmt.Fprintln(out)
	for _, p := range llm.Backends {
		status := "missing"
		if os.Getenv(p.EnvVar()) != "" {
			status = "set"
		}
		fmt.Fprintf(out, "  %-10s default model %-28s %s (%s)\n", p, p.DefaultModel(), p.EnvVar(), status)
	}
}
