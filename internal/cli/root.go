package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amdevit/restling/pkg/transport"
)

// ErrUnsuccessful is returned when the last response was not a success.
// It is not printed; the exit status carries it.
var ErrUnsuccessful = errors.New("request was not successful")

// globalFlags are shared by every command
type globalFlags struct {
	configPath string
	profile    string
	logLevel   string
	output     string
	verbose    bool
	noColor    bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:     "restling",
		Short:   "A terminal REST client with typed responses",
		Version: transport.Version,
		Long: `Restling sends HTTP requests and shows the classified response:
text and binary bodies, charset decoding, timing and status, with
JSON path extraction and JSON Schema validation of the result.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "Profile configuration file (YAML or JSON)")
	flags.StringVar(&g.profile, "profile", "", "Profile to use from the configuration file")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error or off")
	flags.StringVarP(&g.output, "output", "o", "text", "Output format: text, json or yaml")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newMethodCmd(g, "GET", false),
		newMethodCmd(g, "POST", true),
		newMethodCmd(g, "PUT", true),
		newMethodCmd(g, "PATCH", true),
		newMethodCmd(g, "DELETE", false),
		newRequestCmd(g),
	)
	return root
}

// Execute runs the command tree with args, writing to stdout and stderr.
// Errors other than ErrUnsuccessful are printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SilenceErrors = true
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil && !errors.Is(err, ErrUnsuccessful) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}
