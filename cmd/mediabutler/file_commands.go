package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediabutler/internal/files"
	"mediabutler/internal/ipc"
	"mediabutler/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var category string
	var skip, take int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				var summaries []ipc.FileSummary
				var total int

				if client != nil {
					resp, err := client.ListFiles(ipc.ListFilesRequest{
						Statuses: statuses,
						Category: category,
						Skip:     skip,
						Take:     take,
					})
					if err != nil {
						return err
					}
					summaries = resp.Files
					total = resp.Total
				} else {
					opts := store.ListOptions{Skip: skip, Take: take, Category: category}
					for _, status := range statuses {
						opts.Statuses = append(opts.Statuses, store.Status(status))
					}
					tracked, count, err := svc.Store().List(cmd.Context(), opts)
					if err != nil {
						return err
					}
					summaries = ipc.FileSummariesFrom(tracked)
					total = count
				}

				if asJSON {
					return writeJSON(cmd, ipc.ListFilesResponse{Files: summaries, Total: total})
				}

				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No tracked files")
					return nil
				}
				fmt.Fprintln(out, renderTable(fileListHeaders(), buildFileRows(summaries), fileListAlignments()))
				if total > len(summaries) {
					fmt.Fprintf(out, "Showing %d of %d files\n", len(summaries), total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by file status (repeatable)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by confirmed category")
	cmd.Flags().IntVar(&skip, "skip", 0, "Rows to skip")
	cmd.Flags().IntVar(&take, "take", 50, "Rows per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the listing as JSON")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search tracked files by name (SQL-like pattern, % and _)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				var summaries []ipc.FileSummary
				if client != nil {
					resp, err := client.SearchFiles(pattern)
					if err != nil {
						return err
					}
					summaries = resp.Files
				} else {
					tracked, err := svc.Store().Search(cmd.Context(), pattern)
					if err != nil {
						return err
					}
					summaries = ipc.FileSummariesFrom(tracked)
				}

				if asJSON {
					return writeJSON(cmd, ipc.SearchFilesResponse{Files: summaries})
				}

				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No matches")
					return nil
				}
				fmt.Fprintln(out, renderTable(fileListHeaders(), buildFileRows(summaries), fileListAlignments()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the matches as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <hash>",
		Short: "Show one tracked file with its processing history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				var detail ipc.ShowFileResponse
				if client != nil {
					resp, err := client.ShowFile(hash)
					if err != nil {
						return err
					}
					detail = *resp
				} else {
					file, err := svc.Get(cmd.Context(), hash)
					if err != nil {
						return err
					}
					logRows, err := svc.Store().LogsForFile(cmd.Context(), hash)
					if err != nil {
						return err
					}
					detail.File = ipc.FileSummaryFrom(file)
					for _, row := range logRows {
						detail.Logs = append(detail.Logs, ipc.LogEntryFrom(row))
					}
				}

				if asJSON {
					return writeJSON(cmd, detail)
				}
				renderFileDetail(cmd.OutOrStdout(), detail)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the file as JSON")
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <hash> <category>",
		Short: "Confirm a category and mark the file ready to move",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, category := args[0], args[1]
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				var summary ipc.FileSummary
				if client != nil {
					resp, err := client.Confirm(hash, category)
					if err != nil {
						return err
					}
					summary = resp.File
				} else {
					file, err := svc.Confirm(cmd.Context(), hash, category)
					if err != nil {
						return err
					}
					summary = ipc.FileSummaryFrom(file)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %s as %s\nTarget: %s\n",
					shortHash(summary.Hash), summary.Category, summary.TargetPath)
				return nil
			})
		},
	}
}

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <hash>",
		Short: "Exclude a file from processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				if client != nil {
					if _, err := client.Ignore(hash); err != nil {
						return err
					}
				} else {
					if _, err := svc.Ignore(cmd.Context(), hash); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ignored %s\n", shortHash(hash))
				return nil
			})
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "reset <hash>",
		Aliases: []string{"retry"},
		Short:   "Return an errored file to the discovery state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withFiles(func(client *ipc.Client, svc *files.Service) error {
				var summary ipc.FileSummary
				if client != nil {
					resp, err := client.ResetFile(hash)
					if err != nil {
						return err
					}
					summary = resp.File
				} else {
					file, err := svc.ResetError(cmd.Context(), hash)
					if err != nil {
						return err
					}
					summary = ipc.FileSummaryFrom(file)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %s to %s\n",
					shortHash(summary.Hash), formatStatusLabel(summary.Status))
				return nil
			})
		},
	}
}

func shortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
