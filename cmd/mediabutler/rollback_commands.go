package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediabutler/internal/ipc"
)

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	var force bool

	rollbackCmd := &cobra.Command{
		Use:   "rollback <hash>",
		Short: "Undo the newest recorded move for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Rollback(hash, force); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to its original location\n", shortHash(hash))
				return nil
			})
		},
	}
	rollbackCmd.Flags().BoolVar(&force, "force", false, "Overwrite the original path if something re-occupied it")

	var maxAgeHours int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop rollback points older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CleanupRollback(maxAgeHours)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d rollback points\n", resp.Removed)
				return nil
			})
		},
	}
	cleanupCmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Retention window in hours (default 30 days)")
	rollbackCmd.AddCommand(cleanupCmd)

	return rollbackCmd
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the classifier corpus from the library and history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReloadLibrary()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Classifier reloaded with %d titles\n", resp.Titles)
				return nil
			})
		},
	}
}
