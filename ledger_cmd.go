package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hire-scout/ledger"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processed-author ledger",
	}
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.AddCommand(newLedgerListCmd(), newLedgerCheckCmd(), newLedgerStatsCmd())
	return cmd
}

func newLedgerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List authors in a partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			partition, _ := cmd.Flags().GetString("partition")
			outcome, err := ledger.ParseOutcome(partition)
			if err != nil {
				return err
			}

			l, err := openLedgerFromCmd(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			authors := l.Authors(outcome)
			if jsonOutput(cmd) {
				if authors == nil {
					authors = []string{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(authors)
			}
			for _, name := range authors {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().String("partition", ledger.Messaged.String(), "partition to list (messaged or no_chat)")
	return cmd
}

func newLedgerCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check USERNAME",
		Short: "Show whether an author has been processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedgerFromCmd(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			outcome, ok := l.OutcomeOf(args[0])
			status := "unseen"
			if ok {
				status = outcome.String()
			}
			if jsonOutput(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"author": args[0],
					"status": status,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], status)
			return nil
		},
	}
}

func newLedgerStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count authors per partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedgerFromCmd(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			stats := l.Stats()
			if jsonOutput(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{
					"messaged": stats.Messaged,
					"no_chat":  stats.NoChat,
					"total":    stats.Total(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "messaged: %d\nno_chat: %d\ntotal: %d\n",
				stats.Messaged, stats.NoChat, stats.Total())
			return nil
		},
	}
}

func openLedgerFromCmd(cmd *cobra.Command) (*ledger.Ledger, error) {
	// Logs go to stderr so stdout stays parseable.
	cfg, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return openLedger(cmd.Context(), cfg)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
