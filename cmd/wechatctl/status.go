package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wechat_sync/internal/domain"
	"wechat_sync/internal/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the state and progress of a sync task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connectDB()
		if err != nil {
			return err
		}
		defer db.Close()

		task, err := postgres.NewTaskStore(db, cfg.Sync.RetryBaseDelay).GetTask(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if task == nil {
			return fmt.Errorf("%w: task %s", domain.ErrNotFound, args[0])
		}

		printTask(cmd, task)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printTask(cmd *cobra.Command, task *domain.SyncTask) {
	cmd.Printf("Task:      %s\n", task.ID)
	cmd.Printf("Account:   %s\n", task.AccountID)
	cmd.Printf("Status:    %s\n", task.Status)
	cmd.Printf("Step:      %s (%d%%)\n", task.Progress.Step, task.Progress.Percentage)
	cmd.Printf("Processed: %d\n", task.ProcessedCount)
	cmd.Printf("Retries:   %d/%d\n", task.RetryCount, task.MaxRetries)
	if task.NextRetryAt != nil {
		cmd.Printf("Next try:  %s\n", task.NextRetryAt.Format("2006-01-02 15:04:05"))
	}
	if task.Result != nil {
		cmd.Printf("Result:    %s\n", task.Result.Message)
	}
	if task.Error != "" {
		cmd.Printf("Error:     %s\n", task.Error)
	}
}
