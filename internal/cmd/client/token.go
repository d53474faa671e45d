package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newTokenCommand constructs the `token` command group for inspecting and
// resetting stored checkpoints.
func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{Use: "token", Short: "Checkpoint operations"}
	tokenCmd.AddCommand(
		newTokenShowCommand(),
		newTokenListCommand(),
		newTokenResetCommand(),
	)
	return tokenCmd
}

func newTokenShowCommand() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored checkpoint for a processor segment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			processor, _ := cmd.Flags().GetString("processor")
			segment, _ := cmd.Flags().GetUint32("segment")

			store, err := openTokenStore(loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tok, ok, err := store.Load(processor, segment)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no checkpoint for processor %q segment %d", processor, segment)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(decodedToken(tok))
		},
	}
	showCmd.Flags().StringP("processor", "p", "default", "Processor name")
	showCmd.Flags().Uint32("segment", 0, "Checkpoint segment")
	return showCmd
}

func newTokenListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List segments with a stored checkpoint for a processor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			processor, _ := cmd.Flags().GetString("processor")

			store, err := openTokenStore(loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			segs, err := store.Segments(processor)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]any{"processor": processor, "segments": segs})
		},
	}
	listCmd.Flags().StringP("processor", "p", "default", "Processor name")
	return listCmd
}

func newTokenResetCommand() *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored checkpoint for a processor segment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			processor, _ := cmd.Flags().GetString("processor")
			segment, _ := cmd.Flags().GetUint32("segment")

			store, err := openTokenStore(loadConfig())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Reset(processor, segment); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint reset: processor=%s segment=%d\n", processor, segment)
			return nil
		},
	}
	resetCmd.Flags().StringP("processor", "p", "default", "Processor name")
	resetCmd.Flags().Uint32("segment", 0, "Checkpoint segment")
	return resetCmd
}
