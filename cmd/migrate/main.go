package main

import (
	"errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the scheduling database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if dsn == "" {
				dsn = os.Getenv("POSTGRES_DSN")
			}
			if dsn == "" {
				return errors.New("POSTGRES_DSN or --dsn is required")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres:// URL (defaults to POSTGRES_DSN)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := db.MigrateUp(dsn); err != nil {
					return err
				}
				cmd.Println("schema up to date")
				return nil
			},
		},
		newDownCmd(&dsn),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := db.NewMigrator(dsn)
				if err != nil {
					return err
				}
				defer m.Close()

				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					cmd.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			},
		},
	)
	return root
}

func newDownCmd(dsn *string) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := db.NewMigrator(*dsn)
			if err != nil {
				return err
			}
			defer m.Close()

			if steps > 0 {
				err = m.Steps(-steps)
			} else {
				err = m.Down()
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			cmd.Println("rolled back")
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back; 0 rolls back everything")
	return cmd
}
