package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/messaging/nats"
	"github.com/carelog-systems/carelog-projector/internal/seeder"
)

var (
	seedPatients int
	seedEvents   int
	seedWindow   time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Publish synthetic change records to the change stream",
	Long: `Generates realistic patient attribute changes and publishes them in
the typed-tag wire format, for load testing the projector end to end.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedPatients, "patients", 100, "number of distinct patients")
	seedCmd.Flags().IntVar(&seedEvents, "events", 10, "events per patient")
	seedCmd.Flags().DurationVar(&seedWindow, "window", 24*time.Hour, "spread of occurredAt timestamps into the past")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	js, err := nats.NewJetStreamClient(nats.Config{
		URL:      cfg.NATS.URL,
		Name:     cfg.NATS.Name + "-seeder",
		Username: cfg.NATS.Username,
		Password: cfg.NATS.Password,
	})
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer js.Close()

	published, err := seeder.New(js, log).Run(context.Background(), seeder.Options{
		Patients:         seedPatients,
		EventsPerPatient: seedEvents,
		TimeWindow:       seedWindow,
	})
	if err != nil {
		return fmt.Errorf("seeding failed after %d records: %w", published, err)
	}

	fmt.Printf("published %d change records\n", published)
	return nil
}
