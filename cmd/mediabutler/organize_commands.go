package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediabutler/internal/ipc"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "organize <hash>",
		Short: "Queue a move into the library for one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Organize(hash, category)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued organize for %s (job %s)\n", shortHash(hash), resp.JobID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Override the confirmed or suggested category")
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var category string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <hash>",
		Short: "Show what organizing a file would do, without moving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Preview(hash, category)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Target: %s\n", resp.TargetPath)
				fmt.Fprintf(out, "Space:  %s required, %s available\n",
					humanize.Bytes(resp.RequiredBytes), humanize.Bytes(resp.AvailableBytes))
				if len(resp.Siblings) > 0 {
					fmt.Fprintln(out, "Siblings moving along:")
					for _, sibling := range resp.Siblings {
						fmt.Fprintf(out, "  - %s\n", sibling)
					}
				}
				if resp.IsSafe {
					fmt.Fprintln(out, renderStatusLine("Safety", statusOK, "move is safe", colorize))
					return nil
				}
				fmt.Fprintln(out, renderStatusLine("Safety", statusWarn, "move has issues", colorize))
				for _, issue := range resp.SafetyIssues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Override the confirmed or suggested category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the preview as JSON")
	return cmd
}
