package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/eilgug/profile-api/internal/adapters/postgres"
	"github.com/eilgug/profile-api/internal/adapters/postgres/migrations"
	"github.com/eilgug/profile-api/internal/platform/config"
	"github.com/eilgug/profile-api/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the profile database schema",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (default $DATABASE_URL)")

	open := func(cmd *cobra.Command) (*migrations.Migrator, func(), error) {
		if databaseURL == "" {
			return nil, nil, fmt.Errorf("--database-url or DATABASE_URL is required")
		}
		pool, err := postgres.NewPool(cmd.Context(), databaseURL, 2)
		if err != nil {
			return nil, nil, err
		}
		log := logging.New(config.LogConfig{Level: os.Getenv("LOG_LEVEL"), Format: "text"})
		m, err := migrations.New(pool, log)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return m, pool.Close, nil
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down [n]",
		Short: "Revert the last n applied migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}
			m, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := m.Down(cmd.Context(), steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", n)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			st, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Version", "Name", "Applied at"})
			table.SetBorder(false)
			for _, s := range st {
				applied := "pending"
				if s.AppliedAt != nil {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				table.Append([]string{s.Version, s.Name, applied})
			}
			table.Render()
			return nil
		},
	}

	var dir string
	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, down, err := migrations.Scaffold(dir, args[0], time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\ncreated %s\n", up, down)
			return nil
		},
	}
	newCmd.Flags().StringVar(&dir, "dir", migrations.Dir, "migrations directory")

	root.AddCommand(upCmd, downCmd, statusCmd, newCmd)
	return root
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return n, nil
}
