package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/library"
)

func newSetCommand(ctx *commandContext) *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Manage reference sets",
	}
	setCmd.AddCommand(newSetListCommand(ctx))
	setCmd.AddCommand(newSetShowCommand(ctx))
	setCmd.AddCommand(newSetCreateCommand(ctx))
	setCmd.AddCommand(newSetAddTrackCommand(ctx))
	setCmd.AddCommand(newSetRemoveCommand(ctx))
	return setCmd
}

func newSetShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a reference set and its member tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var set api.ReferenceSet
			var members []api.Track
			err := ctx.withLibrary(func(lib *library.Store) error {
				record, err := lib.SetByName(cmd.Context(), name)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("reference set %q does not exist", name)
				}
				count, err := lib.SetTrackCount(cmd.Context(), record.ID)
				if err != nil {
					return err
				}
				profile, err := lib.LatestProfile(cmd.Context(), record.ID)
				if err != nil {
					return err
				}
				set = api.FromSet(record, count, profile != nil)
				tracks, err := lib.ListTracks(cmd.Context(), "", name, 0)
				if err != nil {
					return err
				}
				members = api.FromTracks(tracks)
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"set": set, "tracks": members})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reference set %q\n", set.Name)
			if set.Description != "" {
				fmt.Fprintf(out, "  Description: %s\n", set.Description)
			}
			if set.Genre != "" {
				fmt.Fprintf(out, "  Genre:       %s\n", set.Genre)
			}
			fmt.Fprintf(out, "  Tracks:      %d\n", set.TrackCount)
			fmt.Fprintf(out, "  Profiled:    %s\n", yesNo(set.Profiled))

			if len(members) == 0 {
				fmt.Fprintln(out, "\nNo member tracks yet")
				return nil
			}
			rows := make([][]string, 0, len(members))
			for _, track := range members {
				rows = append(rows, []string{
					strconv.FormatInt(track.ID, 10),
					track.Title,
					track.Artist,
					formatTrackDuration(track.DurationSeconds),
					formatDisplayTime(track.CreatedAt),
				})
			}
			table := renderTable(
				[]string{"ID", "Title", "Artist", "Duration", "Added"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func newSetAddTrackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-track <name> <trackID>",
		Short: "Add a library track to a reference set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			trackID, err := parseTrackID(args[1])
			if err != nil {
				return err
			}
			var trackTitle string
			err = ctx.withLibrary(func(lib *library.Store) error {
				record, err := lib.SetByName(cmd.Context(), name)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("reference set %q does not exist", name)
				}
				track, err := lib.TrackByID(cmd.Context(), trackID)
				if err != nil {
					return err
				}
				if track == nil {
					return fmt.Errorf("track %d not found", trackID)
				}
				if err := lib.AddTrackToSet(cmd.Context(), record.ID, track.ID); err != nil {
					return err
				}
				trackTitle = track.Title
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"set": name, "track_id": trackID, "added": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added track #%d (%s) to set %q\n", trackID, trackTitle, name)
			return nil
		},
	}
}

func newSetListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reference sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sets []api.ReferenceSet
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.SetList()
				if err != nil {
					return err
				}
				sets = resp.Sets
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					records, err := lib.ListSets(cmd.Context())
					if err != nil {
						return err
					}
					for _, record := range records {
						count, err := lib.SetTrackCount(cmd.Context(), record.ID)
						if err != nil {
							return err
						}
						profile, err := lib.LatestProfile(cmd.Context(), record.ID)
						if err != nil {
							return err
						}
						sets = append(sets, api.FromSet(record, count, profile != nil))
					}
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, api.SetListResponse{Sets: sets})
			}
			if len(sets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reference sets defined")
				return nil
			}
			rows := make([][]string, 0, len(sets))
			for _, set := range sets {
				rows = append(rows, []string{
					set.Name,
					set.Genre,
					strconv.Itoa(set.TrackCount),
					yesNo(set.Profiled),
					formatDisplayTime(set.CreatedAt),
				})
			}
			table := renderTable(
				[]string{"Name", "Genre", "Tracks", "Profiled", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newSetCreateCommand(ctx *commandContext) *cobra.Command {
	var description string
	var genre string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a reference set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var set api.ReferenceSet
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.SetCreate(ipc.SetCreateRequest{Name: name, Description: description, Genre: genre})
				if err != nil {
					return err
				}
				set = resp.Set
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					record, err := lib.CreateSet(cmd.Context(), name, description, genre)
					if err != nil {
						return err
					}
					set = api.FromSet(record, 0, false)
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, set)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created reference set %q\n", set.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Describe what the set represents")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre label for the set")
	return cmd
}

func newSetRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a reference set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var removed bool
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.SetRemove(name)
				if err != nil {
					return err
				}
				removed = resp.Removed
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					record, err := lib.SetByName(cmd.Context(), name)
					if err != nil {
						return err
					}
					if record == nil {
						return nil
					}
					if err := lib.DeleteSet(cmd.Context(), record.ID); err != nil {
						return err
					}
					removed = true
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"removed": removed})
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed reference set %q\n", name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Reference set %q does not exist\n", name)
			}
			return nil
		},
	}
}
