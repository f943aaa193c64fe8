package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/profile"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and rebuild reference profiles",
	}
	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileBuildCommand(ctx))
	profileCmd.AddCommand(newProfileExportCommand(ctx))
	return profileCmd
}

func newProfileExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <setName>",
		Short: "Export the latest profile payload as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setName := args[0]
			var payload string
			err := ctx.withLibrary(func(lib *library.Store) error {
				set, err := lib.SetByName(cmd.Context(), setName)
				if err != nil {
					return err
				}
				if set == nil {
					return fmt.Errorf("reference set %q does not exist", setName)
				}
				record, err := lib.LatestProfile(cmd.Context(), set.ID)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no profile built for set %q yet; run `soundcheck profile build %s`", setName, setName)
				}
				payload = record.Payload
				return nil
			})
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(payload+"\n"), 0o644); err != nil {
				return fmt.Errorf("write profile export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported profile for %s to %s\n", setName, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the payload to a file instead of stdout")
	return cmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	var includePayload bool

	cmd := &cobra.Command{
		Use:   "show <setName>",
		Short: "Show the latest profile for a reference set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setName := args[0]
			var info *api.ProfileInfo
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.ProfileShow(ipc.ProfileShowRequest{SetName: setName, IncludePayload: includePayload})
				if err != nil {
					return err
				}
				if resp.Found {
					info = &resp.Profile
				}
				return nil
			}, func() error {
				return ctx.withLibrary(func(lib *library.Store) error {
					set, err := lib.SetByName(cmd.Context(), setName)
					if err != nil {
						return err
					}
					if set == nil {
						return fmt.Errorf("reference set %q does not exist", setName)
					}
					record, err := lib.LatestProfile(cmd.Context(), set.ID)
					if err != nil {
						return err
					}
					if record != nil {
						dto := api.FromProfileRecord(record, set.Name, includePayload)
						info = &dto
					}
					return nil
				})
			})
			if err != nil {
				return err
			}

			if info == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No profile built for set %q yet; run `soundcheck profile build %s`\n", setName, setName)
				return nil
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Profile for %s\n", info.SetName)
			fmt.Fprintf(out, "  Built:  %s\n", formatDisplayTime(info.BuiltAt))
			fmt.Fprintf(out, "  Tracks: %d\n", info.TrackCount)
			if includePayload && len(info.Payload) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, string(info.Payload))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includePayload, "payload", false, "Include the raw profile payload")
	return cmd
}

func newProfileBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build <setName>",
		Short: "Rebuild the profile for a reference set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setName := args[0]
			var info api.ProfileInfo
			err := ctx.withClientOrFallback(func(client *ipc.Client) error {
				resp, err := client.ProfileBuild(setName)
				if err != nil {
					return err
				}
				info = resp.Profile
				return nil
			}, func() error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				return ctx.withLibrary(func(lib *library.Store) error {
					set, err := lib.SetByName(cmd.Context(), setName)
					if err != nil {
						return err
					}
					if set == nil {
						return fmt.Errorf("reference set %q does not exist", setName)
					}
					features, err := lib.FeaturesForSet(cmd.Context(), set.ID)
					if err != nil {
						return err
					}
					builder := profile.NewBuilder(cfg, logging.NewNop())
					built, err := builder.Build(cmd.Context(), setName, features)
					if err != nil {
						return err
					}
					payload, err := built.Encode()
					if err != nil {
						return fmt.Errorf("encode profile: %w", err)
					}
					record := &library.ProfileRecord{
						SetID:      set.ID,
						BuiltAt:    built.BuiltAt,
						TrackCount: built.TrackCount,
						Payload:    payload,
					}
					if err := lib.SaveProfile(cmd.Context(), record); err != nil {
						return fmt.Errorf("save profile: %w", err)
					}
					info = api.FromProfileRecord(record, setName, false)
					return nil
				})
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile rebuilt for %s (%d tracks)\n", info.SetName, info.TrackCount)
			return nil
		},
	}
}
