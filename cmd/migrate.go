package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/zimablue/zima-blue/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and seed the default admin user",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}
		defer app.close()

		if err := database.AutoMigrate(app.db); err != nil {
			log.Fatalf("Failed to auto migrate database: %v", err)
		}
		if err := ensureAdminUser(app.usersRepo); err != nil {
			log.Fatalf("Failed to ensure admin user: %v", err)
		}

		log.Println("Database migrated successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
