package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amdevit/restling/internal/config"
	"github.com/amdevit/restling/internal/output"
	"github.com/amdevit/restling/internal/report"
	"github.com/amdevit/restling/pkg/jsonpath"
	"github.com/amdevit/restling/pkg/jsonschema"
	"github.com/amdevit/restling/rest"
)

// run sends verb to rawURL and prints the outcome. It returns
// ErrUnsuccessful when the last response is not a success.
func run(cmd *cobra.Command, g *globalFlags, f *requestFlags, verb, rawURL string) error {
	if err := f.validate(); err != nil {
		return err
	}
	format, err := output.ParseFormat(g.output)
	if err != nil {
		return err
	}

	profile, err := config.ResolveProfile(g.configPath, g.profile)
	if err != nil {
		return err
	}
	logger, err := newLogger(g, profile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	s, err := newSession(ctx, cmd, f, profile, logger)
	if err != nil {
		return err
	}
	defer s.close()

	req, err := s.buildRequest(verb, rawURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	noColor := g.noColor || !colorTerminal(out)
	formatter := output.GetFormatter(format, g.verbose, noColor)

	if format == output.FormatText || g.verbose {
		fmt.Fprint(out, formatter.FormatRequest(req))
	}

	var last *rest.Result
	for i := range f.repeat {
		res, err := s.send(ctx, req)
		if err != nil {
			return err
		}
		last = res
		if g.verbose || i == f.repeat-1 {
			fmt.Fprint(out, formatter.FormatResult(res))
		}
	}
	summary := s.recorder.Summary()
	if f.repeat > 1 {
		fmt.Fprint(out, formatter.FormatSummary(summary))
	}
	if f.report != "" {
		verb, _ := req.Verb()
		data := report.Data{Method: verb, URL: req.URI(), Summary: summary}
		if err := report.GenerateHTML(data, f.report); err != nil {
			return err
		}
	}

	if err := s.writeMetrics(); err != nil {
		return err
	}
	if err := s.saveCookies(ctx, req.URI()); err != nil {
		logger.Warn("saving cookies failed", zap.Error(err))
	}

	if err := checkResult(out, f, last, noColor); err != nil {
		return err
	}
	if !last.IsSuccessful() {
		return ErrUnsuccessful
	}
	return nil
}

// checkResult runs --extract and --schema against the result body
func checkResult(out io.Writer, f *requestFlags, res *rest.Result, noColor bool) error {
	var errs []error

	if len(f.extract) > 0 {
		extractions, err := jsonpath.ExtractAll(res.Content(), f.extract)
		for _, e := range extractions {
			if e.Err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", output.ErrorIcon(noColor), e.Expr, e.Err)
				continue
			}
			fmt.Fprintf(out, "%s %s = %s\n", output.SuccessIcon(noColor), e.Expr, e.Value)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("extraction failed: %w", err))
		}
	}

	if f.schema != "" {
		schema, err := jsonschema.CompileFile(f.schema)
		if err != nil {
			return err
		}
		if err := schema.Validate(res.RawContent()); err != nil {
			fmt.Fprintf(out, "%s schema %s: %v\n", output.ErrorIcon(noColor), f.schema, err)
			errs = append(errs, fmt.Errorf("response does not match schema %s: %w", f.schema, err))
		} else {
			fmt.Fprintf(out, "%s schema %s\n", output.SuccessIcon(noColor), f.schema)
		}
	}

	return errors.Join(errs...)
}

func colorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && output.IsTerminal(f)
}
