package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wechat_sync/internal/domain"
	"wechat_sync/internal/publisher"
	"wechat_sync/internal/storage/postgres"
)

var syncOpts domain.SyncRequest

var syncCmd = &cobra.Command{
	Use:   "sync <account-id>",
	Short: "Create a sync task and enqueue it for the workers",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncOpts.TaskID, "task-id", "", "task id (generated when empty)")
	f.StringVar(&syncOpts.SyncType, "type", "articles", "sync type")
	f.StringVar(&syncOpts.SyncScope, "scope", "recent", "sync scope")
	f.IntVar(&syncOpts.ArticleLimit, "limit", 20, "maximum number of articles to fetch")
	f.IntVar(&syncOpts.BatchSize, "batch-size", 10, "articles per persistence flush")
	f.BoolVar(&syncOpts.ForceSync, "force-sync", false, "keep paging past short pages")
	f.BoolVar(&syncOpts.ForceDownload, "force-download", false, "re-request media of existing articles")
	f.BoolVar(&syncOpts.ProcessMedia, "process-media", true, "dispatch media downloads")
	f.StringVar(&syncOpts.CallbackURL, "callback-url", "", "url notified when the task finishes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	req := syncOpts
	req.AccountID = args[0]
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := connectDB()
	if err != nil {
		return err
	}
	defer db.Close()

	account, err := postgres.NewAccountStore(db).Get(ctx, req.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, req.AccountID)
	}

	tasks := postgres.NewTaskStore(db, cfg.Sync.RetryBaseDelay)
	if err := tasks.Create(ctx, req, cfg.Sync.MaxRetries); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	pub, err := publisher.NewRabbitMQ(publisher.Config{
		URL:             cfg.RabbitMQ.URL,
		Exchange:        cfg.RabbitMQ.Exchange,
		SyncQueue:       cfg.RabbitMQ.SyncQueue,
		SyncRoutingKey:  cfg.RabbitMQ.SyncRoutingKey,
		MediaQueue:      cfg.RabbitMQ.MediaQueue,
		MediaRoutingKey: cfg.RabbitMQ.MediaRoutingKey,
	}, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := pub.PublishSyncRequest(ctx, req); err != nil {
		return fmt.Errorf("enqueue task %s: %w", req.TaskID, err)
	}

	cmd.Printf("Enqueued task %s for account %s.\n", req.TaskID, req.AccountID)
	return nil
}
