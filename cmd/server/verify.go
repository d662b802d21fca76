package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/invariant-ledger/api"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-verify every stored book against its rules",
		Long: `verify opens every stored book, replays its full history and checks
every rule. It exits non-zero if any book fails to open.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			handler := api.NewHandler(store, logger)
			loadErr := handler.LoadBooks(cmd.Context())

			out := cmd.OutOrStdout()
			for _, b := range handler.Books.List() {
				fmt.Fprintf(out, "ok    %-20s %d transactions, %d rules\n",
					b.ID(), b.System().Len(), len(b.Definition().Rules))
			}
			if loadErr != nil {
				fmt.Fprintf(out, "FAIL  %v\n", loadErr)
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
}
