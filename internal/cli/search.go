package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Daethyra/ExecEye/internal/engine"
	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/tui"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

const defaultSearchConcurrency = 4

// searchFlags holds the flags of the search command.
type searchFlags struct {
	intent      string
	output      string
	concurrency int
}

// searchResult is one company's outcome in JSON output.
type searchResult struct {
	Company string          `json:"company"`
	Key     string          `json:"key,omitempty"`
	Source  engine.Source   `json:"source,omitempty"`
	Records []search.Record `json:"records"`
	Warning string          `json:"warning,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newSearchCmd(sess *session) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <company>...",
		Short: "Look up one or more companies",
		Long: `Looks up each company and prints the results in argument order.
Lookups run concurrently; repeated names are answered once.`,
		Example: `  execeye search "Acme Corp"
  execeye search Acme Globex Initech --concurrency 2
  execeye search Acme --intent news --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, sess, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.intent, "intent", string(search.DefaultIntent),
		"what to look up: "+joinIntents())
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputText, "output format: text or json")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", defaultSearchConcurrency, "maximum concurrent lookups")

	return cmd
}

func runSearch(cmd *cobra.Command, sess *session, companies []string, flags searchFlags) error {
	intent, err := search.ParseIntent(flags.intent)
	if err != nil {
		return err
	}
	if err := validateOutput(flags.output); err != nil {
		return err
	}
	if flags.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", flags.concurrency)
	}

	ctx := cmd.Context()
	a, err := sess.open(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(ctx); closeErr != nil {
			logger.Warn().Ctx(ctx).Err(closeErr).Msg("closing lookup stack")
		}
	}()

	results := make([]searchResult, len(companies))
	var g errgroup.Group
	g.SetLimit(flags.concurrency)
	for i, company := range companies {
		g.Go(func() error {
			results[i] = resolveOne(cmd, a.engine, company, intent)
			return nil
		})
	}
	_ = g.Wait()

	if err := renderSearch(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.output, intent, results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d lookups failed", failed, len(results))}
	}
	return nil
}

func resolveOne(cmd *cobra.Command, eng *engine.Engine, company string, intent search.Intent) searchResult {
	out := searchResult{Company: strings.TrimSpace(company), Records: []search.Record{}}

	res, err := eng.Resolve(cmd.Context(), engine.Query{Subject: company, Intent: intent})
	if err != nil {
		out.Error = err.Error()
		if errors.Is(err, engine.ErrInvalidInput) {
			out.Error = replEmpty
		}
		return out
	}

	out.Key = res.Key
	out.Source = res.Source
	out.Records = res.Records
	if res.ProviderErr != nil {
		out.Warning = res.ProviderErr.Error()
	}
	return out
}

func renderSearch(w, errW io.Writer, format string, intent search.Intent, results []searchResult) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	painter := tui.Painter{Styled: tui.IsTerminal(w)}
	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(errW, "Error: %s: %s\n", r.Company, r.Error)
			continue
		}
		if _, err := fmt.Fprint(w, tui.RenderResults(painter, r.Company, intent, r.Records)); err != nil {
			return err
		}
	}
	return nil
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (valid: text, json)", format)
	}
}

func joinIntents() string {
	names := make([]string, 0, len(search.Intents()))
	for _, i := range search.Intents() {
		names = append(names, string(i))
	}
	return strings.Join(names, ", ")
}
