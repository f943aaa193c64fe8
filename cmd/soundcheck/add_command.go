package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var setName string
	var reference bool

	cmd := &cobra.Command{
		Use:   "add <url-or-path>",
		Short: "Queue a track for background processing",
		Long:  "Queue a YouTube URL or local audio file for fetching, analysis, and gap reporting.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			kind := queue.KindCandidate
			if reference {
				kind = queue.KindReference
			}

			var item *api.QueueItem
			var created bool
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.Enqueue(ipc.EnqueueRequest{Source: source, Kind: string(kind), SetName: setName})
				if err != nil {
					return err
				}
				dto := resp.Item
				item = &dto
				created = resp.Created
				return nil
			}, func() error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				store, err := queue.Open(cfg)
				if err != nil {
					return err
				}
				defer store.Close()

				result, err := api.EnqueueSource(cmd.Context(), api.EnqueueSourceRequest{
					Store:   store,
					Kind:    kind,
					Source:  source,
					SetName: setName,
				})
				if err != nil {
					return err
				}
				dto := api.FromQueueItem(result.Item)
				item = &dto
				created = result.Created
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"item": item, "created": created})
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item #%d\n", item.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Source already queued as item #%d (%s)\n", item.ID, formatStatusLabel(item.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&setName, "set", "", "Reference set to compare against (candidates) or join (references)")
	cmd.Flags().BoolVar(&reference, "reference", false, "Queue the source as reference material instead of a candidate")
	return cmd
}
