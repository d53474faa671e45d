// Package client contains Cobra CLI commands for strand.
package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs the root Cobra command for the strand client.
// It registers the tail command and the token command group.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "strand",
		Short: "Strand event stream client",
		Long:  "Strand tails a remote event store with durable, resumable checkpoints.",
	}
	root.AddCommand(newTailCommand())
	root.AddCommand(newTokenCommand())
	return root
}
