package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediabutler/internal/files"
	"mediabutler/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs [hash]",
		Short: "Display daemon logs, or a file's processing history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runFileLogs(ctx, cmd, args[0])
			}

			initialLimit := lines
			if initialLimit < 0 {
				initialLimit = 0
			}
			initialOffset := int64(-1)
			if initialLimit == 0 {
				initialOffset = 0
			}

			return ctx.withClient(func(client *ipc.Client) error {
				cmdCtx := cmd.Context()
				offset := initialOffset
				limit := initialLimit
				printed := false

				for {
					resp, err := client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Limit:      limit,
						Follow:     follow,
						WaitMillis: 1000,
					})
					if err != nil {
						return fmt.Errorf("tail logs: %w", err)
					}
					if resp == nil {
						return errors.New("log tail response missing")
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(cmd.OutOrStdout(), line)
						printed = true
					}
					offset = resp.Offset
					limit = 0
					if !follow {
						if !printed {
							fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
						}
						return nil
					}
					select {
					case <-cmdCtx.Done():
						return nil
					default:
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// runFileLogs prints the processing history of a single tracked file.
func runFileLogs(ctx *commandContext, cmd *cobra.Command, hash string) error {
	return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
		var logs []ipc.LogEntry
		if client != nil {
			resp, err := client.ShowFile(hash)
			if err != nil {
				return err
			}
			logs = resp.Logs
		} else {
			rows, err := svc.Store().LogsForFile(cmd.Context(), hash)
			if err != nil {
				return err
			}
			for _, row := range rows {
				logs = append(logs, ipc.LogEntryFrom(row))
			}
		}
		if len(logs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No processing history recorded")
			return nil
		}
		renderLogEntries(cmd.OutOrStdout(), logs)
		return nil
	})
}
