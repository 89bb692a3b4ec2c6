// Command cli is the study groups admin tool: run an expiration sweep or
// inspect stored groups without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"studygroups/internal/config"
	internaldb "studygroups/internal/db"
	"studygroups/internal/db/repository"
	"studygroups/internal/domain"
	"studygroups/internal/service/cleanup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "studygroups",
		Short:         "Admin tool for the study groups service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (default $DB_PATH or studygroups.sqlite)")

	root.AddCommand(sweepCmd(&dbPath))
	root.AddCommand(listCmd(&dbPath))
	return root
}

// openStore opens the write/read pool pair against the configured database
// and runs pending migrations.
func openStore(dbPath string) (*repository.StudyGroupRepo, func(), error) {
	if dbPath == "" {
		if err := config.LoadDotEnv(".env"); err != nil {
			return nil, nil, err
		}
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "studygroups.sqlite"
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(dbPath, 2)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		closer()
		return nil, nil, err
	}
	return repository.NewStudyGroupRepo(writeDB, readDB), closer, nil
}

func sweepCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete every expired or ended study group (and its participants)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closer, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closer()

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			removed, err := cleanup.NewSweeper(repo, logger).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired study group(s)\n", removed)
			return nil
		},
	}
}

func listCmd(dbPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List study groups with participant counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closer, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closer()

			filter := domain.GroupFilter{}
			if !all {
				filter.ActiveAfter = time.Now().UTC()
			}
			groups, err := repo.ListWithCounts(context.Background(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSUBJECT\tSTART\tEND\tORGANIZER\tJOINED\tEXPIRES")
			for _, gc := range groups {
				g := gc.Group
				joined := fmt.Sprintf("%d", gc.ParticipantCount)
				if g.StudentLimit != nil {
					joined = fmt.Sprintf("%d/%d", gc.ParticipantCount, *g.StudentLimit)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					g.ID, g.Subject,
					g.StartTime.Format(time.RFC3339), g.EndTime.Format(time.RFC3339),
					g.OrganizerEmail, joined,
					g.ExpiresAt.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include groups whose session already ended")
	return cmd
}
