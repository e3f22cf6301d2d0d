package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dan9191/expense-service/internal/app"
	"github.com/Dan9191/expense-service/internal/config"
	"github.com/Dan9191/expense-service/internal/service"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createSuperuserCmd)

	createSuperuserCmd.Flags().StringP("username", "u", "", "Login name of the new superuser")
	createSuperuserCmd.Flags().StringP("password", "p", "", "Password of the new superuser")
	createSuperuserCmd.MarkFlagRequired("username")
	createSuperuserCmd.MarkFlagRequired("password")
}

var rootCmd = &cobra.Command{
	Use:   "expensectl",
	Short: "Administer the expense service",
	Long: `Administrative commands for the expense service. Connection settings
are read from the same environment variables as the API server.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, cfg, err := openPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		app.NewLogger(cfg.LogLevel).Info("Schema is up to date")
		return nil
	},
}

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a user that may read and modify every expense",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		store, closeStore, cfg, err := openPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		// Superusers never read the cache, so none is wired here
		svc := app.NewService(cfg, store, nil, app.NewLogger(cfg.LogLevel))
		user, err := svc.CreateSuperuser(cmd.Context(), service.Credentials{Username: &username, Password: &password})
		if err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q created with id %d\n", user.Username, user.ID)
		return nil
	},
}

// openPostgres opens the configured database. The in-memory backend lives
// only inside a server process, so admin commands refuse it.
func openPostgres(ctx context.Context) (app.Store, func() error, *config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage != config.StoragePostgres {
		return nil, nil, nil, errors.New("admin commands require STORAGE=postgres")
	}
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, closeStore, cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
