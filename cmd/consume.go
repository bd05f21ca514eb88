package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/itm-space/backend-resources/db"
	awsclient "github.com/itm-space/backend-resources/internal/aws"
	"github.com/itm-space/backend-resources/internal/events"
	"github.com/itm-space/backend-resources/internal/mailer"
	"github.com/itm-space/backend-resources/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer that audits user events and sends welcome emails",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = log.Logger.WithContext(ctx)

		auditDB, err := db.NewAuditDB(appCfg.Database.Driver, appCfg.Database.Source, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize audit database")
		}
		defer auditDB.Close()

		handler := &services.EventHandler{Audit: auditDB}

		if appCfg.Email.Enabled {
			awsCfg, err := awsclient.LoadAWSConfig(ctx, appCfg.AWS.Region)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load AWS config")
			}
			handler.Mailer = mailer.New(awsclient.NewSESClient(awsCfg), appCfg.Email.Sender, appCfg.Email.Subject)
		}

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.TopicConsumer, appCfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		log.Info().Str("topic", appCfg.Pulsar.TopicConsumer).Msg("Waiting for messages...")

		if err := consumer.Run(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Consumer stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
