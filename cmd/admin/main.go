// Command admin runs maintenance tasks against the SkillSwap database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"skillswap/backend/internal/config"
	"skillswap/backend/internal/database"
	"skillswap/backend/internal/storage"

	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	listOwner string
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "SkillSwap maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.MigrateUp(cfg.DatabaseURL(), logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.MigrateDown(cfg.DatabaseURL(), logger)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.MigrationStatus(cfg.DatabaseURL(), logger)
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect service requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List service requests, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		items, err := store.ListRequests(cmd.Context(), listOwner)
		if err != nil {
			return fmt.Errorf("list requests: %w", err)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No service requests.")
			return nil
		}
		for _, r := range items {
			assignee := "-"
			if r.AssignedTo != nil {
				assignee = *r.AssignedTo
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-11s  owner=%s  assignee=%s  %q  [%s]\n",
				r.ID, r.Status, r.OwnerID, assignee, r.Title, strings.Join(r.Skills, ","))
		}
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersVerifyCmd = &cobra.Command{
	Use:   "verify <email>",
	Short: "Mark an account verified without a one-time code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		user, err := store.GetUserByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(args[0])))
		if err != nil {
			return err
		}
		if err := store.MarkUserVerified(cmd.Context(), user.ID); err != nil {
			return fmt.Errorf("verify %s: %w", user.Email, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) is verified.\n", user.Email, user.ID)
		return nil
	},
}

// openStore connects to PostgreSQL only; the admin commands never touch Redis.
func openStore() (*storage.Service, error) {
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return storage.NewStorageService(db, nil, logger), nil
}

func init() {
	requestsListCmd.Flags().StringVar(&listOwner, "owner", "", "only requests owned by this user id")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	requestsCmd.AddCommand(requestsListCmd)
	usersCmd.AddCommand(usersVerifyCmd)
	rootCmd.AddCommand(migrateCmd, requestsCmd, usersCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
