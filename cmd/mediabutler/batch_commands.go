package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediabutler/internal/ipc"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit and track bulk organize runs",
	}

	batchCmd.AddCommand(newBatchSubmitCommand(ctx))
	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchListCommand(ctx))
	batchCmd.AddCommand(newBatchCancelCommand(ctx))

	return batchCmd
}

func newBatchSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <hash[:category]>...",
		Short: "Validate and queue a batch of moves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchFiles := make([]ipc.BatchFile, 0, len(args))
			for _, arg := range args {
				hash, category, _ := strings.Cut(arg, ":")
				if strings.TrimSpace(hash) == "" {
					return fmt.Errorf("invalid batch entry %q", arg)
				}
				batchFiles = append(batchFiles, ipc.BatchFile{Hash: hash, Category: category})
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchSubmit(batchFiles)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Batch %s accepted with %d files\n", resp.BatchID, len(batchFiles))
				return nil
			})
		},
	}
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show progress for one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchStatus(batchID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Batch)
				}
				renderBatchDetail(cmd.OutOrStdout(), resp.Batch)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the batch as JSON")
	return cmd
}

func newBatchListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				if len(resp.Batches) == 0 {
					fmt.Fprintln(out, "No batches")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "State", "Progress", "Failed", "Submitted"},
					buildBatchRows(resp.Batches),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the batches as JSON")
	return cmd
}

func newBatchCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Stop dispatching a running or pending batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.BatchCancel(batchID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Batch %s cancelled; in-flight moves finish first\n", batchID)
				return nil
			})
		},
	}
}
