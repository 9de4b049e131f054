package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Daethyra/ExecEye/internal/engine"
	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/storage/sqlite"
	"github.com/Daethyra/ExecEye/internal/tui"
)

const defaultHistoryLimit = 20

type historyFlags struct {
	intent string
	limit  int
	output string
}

// historyRow is the JSON shape of a stored result.
type historyRow struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"created_at"`
}

func newHistoryCmd(sess *session) *cobra.Command {
	var flags historyFlags

	cmd := &cobra.Command{
		Use:   "history [company]",
		Short: "Show stored results",
		Long:  "Lists results saved by earlier lookups, newest first. Without a company, all companies are listed.",
		Example: `  execeye history
  execeye history "Acme Corp" --limit 5
  execeye history Acme --intent news --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var company string
			if len(args) == 1 {
				company = args[0]
			}
			return runHistory(cmd, sess, company, flags)
		},
	}

	cmd.Flags().StringVar(&flags.intent, "intent", string(search.DefaultIntent), "lookup intent: "+joinIntents())
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", defaultHistoryLimit, "maximum number of rows")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputText, "output format: text or json")

	return cmd
}

func runHistory(cmd *cobra.Command, sess *session, company string, flags historyFlags) error {
	intent, err := search.ParseIntent(flags.intent)
	if err != nil {
		return err
	}
	if err := validateOutput(flags.output); err != nil {
		return err
	}
	if flags.limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", flags.limit)
	}

	ctx := cmd.Context()
	a, err := sess.open(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(ctx); closeErr != nil {
			logger.Warn().Ctx(ctx).Err(closeErr).Msg("closing lookup stack")
		}
	}()

	rows, err := a.engine.History(ctx, engine.HistoryQuery{Subject: company, Intent: intent, Limit: flags.limit})
	if err != nil {
		return err
	}

	if flags.output == outputJSON {
		return writeHistoryJSON(cmd, rows)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(tui.Painter{Styled: tui.IsTerminal(cmd.OutOrStdout())}, rows))
	return err
}

func writeHistoryJSON(cmd *cobra.Command, rows []sqlite.Row) error {
	out := make([]historyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyRow(r))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
