package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/library"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Browse library tracks",
	}
	trackCmd.AddCommand(newTrackListCommand(ctx))
	trackCmd.AddCommand(newTrackShowCommand(ctx))
	trackCmd.AddCommand(newTrackSimilarCommand(ctx))
	trackCmd.AddCommand(newTrackRemoveCommand(ctx))
	return trackCmd
}

func newTrackRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a track and its features from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackID, err := parseTrackID(args[0])
			if err != nil {
				return err
			}
			var title string
			err = ctx.withLibrary(func(lib *library.Store) error {
				track, err := lib.TrackByID(cmd.Context(), trackID)
				if err != nil {
					return err
				}
				if track == nil {
					return fmt.Errorf("track %d not found", trackID)
				}
				title = track.Title
				return lib.RemoveTrack(cmd.Context(), trackID)
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"id": trackID, "removed": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed track #%d (%s)\n", trackID, title)
			return nil
		},
	}
}

func newTrackListCommand(ctx *commandContext) *cobra.Command {
	var kindFilter string
	var setFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracks in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tracks []api.Track
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.TrackList(ipc.TrackListRequest{Kind: kindFilter, SetName: setFilter, Limit: limit})
				if err != nil {
					return err
				}
				tracks = resp.Tracks
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					var kind library.Kind
					if strings.TrimSpace(kindFilter) != "" {
						kind = library.Kind(strings.ToLower(strings.TrimSpace(kindFilter)))
					}
					records, err := lib.ListTracks(cmd.Context(), kind, setFilter, limit)
					if err != nil {
						return err
					}
					tracks = api.FromTracks(records)
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, api.TrackListResponse{Tracks: tracks})
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracks in the library")
				return nil
			}
			rows := make([][]string, 0, len(tracks))
			for _, track := range tracks {
				rows = append(rows, []string{
					strconv.FormatInt(track.ID, 10),
					track.Title,
					track.Artist,
					track.Kind,
					formatTrackDuration(track.DurationSeconds),
					formatDisplayTime(track.CreatedAt),
				})
			}
			table := renderTable(
				[]string{"ID", "Title", "Artist", "Kind", "Duration", "Added"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFilter, "kind", "", "Filter by track kind (candidate or reference)")
	cmd.Flags().StringVar(&setFilter, "set", "", "Filter by reference set name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tracks to list")
	return cmd
}

func newTrackShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trackID>",
		Short: "Show details for a library track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTrackID(args[0])
			if err != nil {
				return err
			}

			var track *api.Track
			err = ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.TrackShow(id)
				if err != nil {
					return err
				}
				if resp.Found {
					track = &resp.Track
				}
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					record, err := lib.TrackByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if record != nil {
						dto := api.FromTrack(record)
						track = &dto
					}
					return nil
				})
			})
			if err != nil {
				return err
			}

			if track == nil {
				return fmt.Errorf("track %d not found", id)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, track)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Track #%d\n", track.ID)
			fmt.Fprintf(out, "  Title:    %s\n", track.Title)
			if track.Artist != "" {
				fmt.Fprintf(out, "  Artist:   %s\n", track.Artist)
			}
			fmt.Fprintf(out, "  Kind:     %s\n", track.Kind)
			if track.SourceURL != "" {
				fmt.Fprintf(out, "  Source:   %s\n", track.SourceURL)
			}
			if track.LibraryPath != "" {
				fmt.Fprintf(out, "  Path:     %s\n", track.LibraryPath)
			}
			if track.DurationSeconds > 0 {
				fmt.Fprintf(out, "  Duration: %s\n", formatTrackDuration(track.DurationSeconds))
			}
			if track.SampleRate > 0 {
				fmt.Fprintf(out, "  Audio:    %d Hz, %d ch, %s\n", track.SampleRate, track.Channels, track.Format)
			}
			if track.Fingerprint != "" {
				fmt.Fprintf(out, "  Print:    %s\n", track.Fingerprint)
			}
			fmt.Fprintf(out, "  Added:    %s\n", formatDisplayTime(track.CreatedAt))
			return nil
		},
	}
}

func newTrackSimilarCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <trackID>",
		Short: "Find library tracks most similar to the given track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTrackID(args[0])
			if err != nil {
				return err
			}

			var matches []api.SimilarTrack
			err = ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.TrackSimilar(id, limit)
				if err != nil {
					return err
				}
				matches = resp.Matches
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					records, err := lib.SimilarTracks(cmd.Context(), id, limit)
					if err != nil {
						return err
					}
					matches = api.FromSimilarTracks(records)
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, api.SimilarTracksResponse{TrackID: id, Matches: matches})
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No similar tracks found")
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				rows = append(rows, []string{
					strconv.FormatInt(match.Track.ID, 10),
					match.Track.Title,
					match.Track.Artist,
					match.Track.Kind,
					fmt.Sprintf("%.1f%%", match.Similarity*100),
				})
			}
			table := renderTable(
				[]string{"ID", "Title", "Artist", "Kind", "Similarity"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of matches to show")
	return cmd
}

func parseTrackID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid track id %q", arg)
	}
	return id, nil
}

func formatTrackDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
