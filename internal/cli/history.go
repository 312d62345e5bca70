package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/awmpietro/shunting-action-validator/internal/journal"
)

type HistoryOptions struct {
	*RootOptions
	JournalPath string
	Limit       int
}

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent decisions from a journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "SQLite journal to read")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	j, err := journal.Open(opts.JournalPath)
	if err != nil {
		return fail(out, "E004", WrapExitError(ExitCommandError, "open journal", err))
	}
	defer j.Close()

	entries, err := j.Recent(ctx, opts.Limit)
	if err != nil {
		return fail(out, "E004", WrapExitError(ExitCommandError, "read journal", err))
	}

	if out.JSON() {
		if entries == nil {
			entries = []journal.Entry{}
		}
		return out.Success(entries)
	}

	if len(entries) == 0 {
		out.Textf("no decisions recorded")
		return nil
	}
	for _, e := range entries {
		outcome := "valid"
		if !e.Valid {
			outcome = "rejected: " + e.Reason
		}
		out.Textf("%s  %-7s %-10s %s", e.RecordedAt.Format(time.RFC3339), e.Kind, e.Unit, outcome)
		out.VerboseLog("  id=%s policy=%s", e.ID, e.Policy)
	}
	return nil
}
