package cmd

import (
	"github.com/itm-space/backend-resources/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Run the audit database migrations",
	Long:  `This job creates the user audit tables by running the embedded goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config and set up logging
		commonSetUp()

		auditDB, err := db.NewAuditDB(appCfg.Database.Driver, appCfg.Database.Source, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize audit database")
		}
		defer auditDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := auditDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
