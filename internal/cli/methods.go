package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newMethodCmd builds one of the verb commands such as "get URL"
func newMethodCmd(g *globalFlags, verb string, withBody bool) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   strings.ToLower(verb) + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, f, verb, args[0])
		},
	}
	f.bind(cmd, withBody)
	return cmd
}

// newRequestCmd builds "request METHOD URL" for any verb, including
// non-standard ones
func newRequestCmd(g *globalFlags) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Make a request with an arbitrary method",
		Example: `  restling request OPTIONS https://httpbin.org/anything
  restling request PURGE https://cache.example.com/item -v`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, f, args[0], args[1])
		},
	}
	f.bind(cmd, true)
	return cmd
}
