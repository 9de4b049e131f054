package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Daethyra/ExecEye/internal/engine"
	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/tui"
)

// Interactive prompt text.
const (
	replPrompt   = "Enter the company name to search for leadership: "
	replEmpty    = "Company name cannot be empty."
	replGoodbye  = "Exiting program. Goodbye!"
	replExitWord = "exit"
	replQuitWord = "quit"
)

// resolver is the engine surface the prompt needs.
type resolver interface {
	Resolve(ctx context.Context, q engine.Query) (engine.Result, error)
}

func newREPLCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive company leadership lookup",
		Long: `Prompts for company names and prints the executives found for each.
Type "exit" or "quit", or send EOF, to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, sess)
		},
	}
}

func runREPL(cmd *cobra.Command, sess *session) error {
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

	p := prompt{
		resolver: a.engine,
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		painter:  tui.Painter{Styled: tui.IsTerminal(cmd.OutOrStdout())},
	}
	return p.run(ctx)
}

// prompt is the line-oriented lookup loop.
type prompt struct {
	resolver resolver
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	painter  tui.Painter
}

func (p prompt) run(ctx context.Context) error {
	lines, scanErr := readLines(ctx, p.in)
	for {
		if ctx.Err() != nil {
			_, _ = fmt.Fprintln(p.out, replGoodbye)
			return nil
		}

		_, _ = fmt.Fprint(p.out, replPrompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(p.out)
			_, _ = fmt.Fprintln(p.out, replGoodbye)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			_, _ = fmt.Fprintln(p.out)
			_, _ = fmt.Fprintln(p.out, replGoodbye)
			return <-scanErr
		}

		company := strings.TrimSpace(line)
		switch strings.ToLower(company) {
		case "":
			_, _ = fmt.Fprintln(p.out, replEmpty)
			continue
		case replExitWord, replQuitWord:
			_, _ = fmt.Fprintln(p.out, replGoodbye)
			return nil
		}

		p.lookup(ctx, company)
	}
}

// readLines scans in on its own goroutine so an interrupt is not held up by
// a blocking read. lines is closed at EOF or on a read error, after the error
// (nil at EOF) is sent on the returned error channel. The reader stops
// sending once ctx ends; a read already blocked in the terminal is left to
// process exit.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (p prompt) lookup(ctx context.Context, company string) {
	res, err := p.resolver.Resolve(ctx, engine.Query{Subject: company, Intent: search.IntentLeadership})
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		_, _ = fmt.Fprintln(p.out, replEmpty)
		return
	case err != nil:
		_, _ = fmt.Fprint(p.errOut, p.painter.Paint(tui.ErrorStyle, fmt.Sprintf("Error: %v", err))+"\n")
		return
	}

	logger.Debug().Ctx(ctx).
		Str("company", company).
		Str("source", string(res.Source)).
		Int("records", len(res.Records)).
		Msg("lookup complete")

	_, _ = fmt.Fprint(p.out, tui.RenderResults(p.painter, company, search.IntentLeadership, res.Records))
}
