package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carelog-systems/carelog-projector/internal/dlq"
	"github.com/carelog-systems/carelog-projector/internal/messaging/nats"
)

var dlqLimit int

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect the projector dead-letter stream",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skipped change records",
	RunE:  runDLQList,
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove all records from the dead-letter stream",
	RunE:  runDLQPurge,
}

func init() {
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 100, "maximum records to list")
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqPurgeCmd)
	rootCmd.AddCommand(dlqCmd)
}

func openDLQ(ctx context.Context) (*dlq.Queue, func(), error) {
	js, err := nats.NewJetStreamClient(nats.Config{
		URL:      cfg.NATS.URL,
		Name:     cfg.NATS.Name + "-dlq",
		Username: cfg.NATS.Username,
		Password: cfg.NATS.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	queue, err := dlq.NewQueue(ctx, js)
	if err != nil {
		js.Close()
		return nil, nil, err
	}
	return queue, func() { js.Close() }, nil
}

func runDLQList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queue, done, err := openDLQ(ctx)
	if err != nil {
		return err
	}
	defer done()

	records, err := queue.List(ctx, dlqLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("dead-letter stream is empty")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func runDLQPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queue, done, err := openDLQ(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := queue.Purge(ctx); err != nil {
		return err
	}
	fmt.Println("dead-letter stream purged")
	return nil
}
