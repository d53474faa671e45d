package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/strand/internal/filter"
	strandclient "github.com/rzbill/strand/pkg/client"
	"github.com/rzbill/strand/pkg/liveness"
	"github.com/rzbill/strand/pkg/stream"
	"github.com/rzbill/strand/pkg/token"
)

// newTailCommand constructs the `tail` subcommand: a resumable tail with a
// durable checkpoint per processor segment.
func newTailCommand() *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail the event stream, resuming from the stored checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			processor, _ := cmd.Flags().GetString("processor")
			segment, _ := cmd.Flags().GetUint32("segment")
			fromStart, _ := cmd.Flags().GetBool("from-start")
			limit, _ := cmd.Flags().GetInt("limit")
			commitEvery, _ := cmd.Flags().GetInt("commit-every")
			filterExpr, _ := cmd.Flags().GetString("filter")

			cfg := loadConfig()
			if filterExpr == "" {
				filterExpr = cfg.Filter
			}
			flt, err := filter.New(filterExpr)
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}

			store, err := openTokenStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var resume token.Token
			if !fromStart {
				tok, ok, err := store.Load(processor, segment)
				if err != nil {
					return err
				}
				if ok {
					resume = tok
				}
			}

			cli := strandclient.New(strandclient.Options{
				Endpoint:    cfg.Endpoint,
				ClientID:    cfg.ClientID,
				ComponentID: cfg.ComponentID,
				Flow: stream.FlowConfig{
					InitialPermits: cfg.FlowControl.InitialPermits,
					Threshold:      cfg.FlowControl.Threshold,
					Refill:         cfg.FlowControl.Refill,
				},
				Liveness: liveness.Config{
					InitialDelay: msToDuration(cfg.Liveness.InitialDelayMs),
					Delay:        msToDuration(cfg.Liveness.DelayMs),
				},
				DisableLiveness: !cfg.Liveness.Enabled,
			})
			defer func() { _ = cli.Close() }()

			sess, err := cli.OpenStream(cmd.Context(), resume)
			if err != nil {
				return err
			}
			defer sess.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			printed := 0
			sinceCommit := 0
			var last token.Token

			commit := func() error {
				if last == nil {
					return nil
				}
				sinceCommit = 0
				return store.Commit(processor, segment, last)
			}
			defer func() { _ = commit() }()

			for {
				ev, err := sess.NextAvailable(cmd.Context())
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, stream.ErrStreamClosed) {
						return nil
					}
					return err
				}
				last = ev.Token
				sinceCommit++
				if flt.Eval(ev) {
					_ = enc.Encode(decodedEvent(ev))
					printed++
				}
				if commitEvery > 0 && sinceCommit >= commitEvery {
					if err := commit(); err != nil {
						return err
					}
				}
				if limit > 0 && printed >= limit {
					return commit()
				}
			}
		},
	}
	tailCmd.Flags().StringP("processor", "p", "default", "Processor name owning the checkpoint")
	tailCmd.Flags().Uint32("segment", 0, "Checkpoint segment")
	tailCmd.Flags().Bool("from-start", false, "Ignore the stored checkpoint and start from the head")
	tailCmd.Flags().Int("limit", 0, "Stop after N printed events (0 = infinite)")
	tailCmd.Flags().Int("commit-every", 100, "Commit the checkpoint every N events (0 = only on exit)")
	tailCmd.Flags().String("filter", "", "CEL filter (client-side)")
	return tailCmd
}
