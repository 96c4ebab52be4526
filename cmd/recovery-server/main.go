package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/backtolife/recovery/internal/config"
	"github.com/backtolife/recovery/internal/domain/assessment"
	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
	"github.com/backtolife/recovery/internal/platform/db"
	"github.com/backtolife/recovery/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recovery-server",
		Short: "Back to Life recovery scoring API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(scheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run clinic schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			target, _ := cmd.Flags().GetInt("to")
			if !db.ValidClinicID(clinic) {
				return fmt.Errorf("invalid clinic identifier: %s", clinic)
			}

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := db.SchemaName(clinic)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			count, err := db.NewMigrator(pool, migrations.FS).UpTo(ctx, schema, target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("clinic", "main", "Clinic whose schema is migrated")
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			if !db.ValidClinicID(clinic) {
				return fmt.Errorf("invalid clinic identifier: %s", clinic)
			}

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := db.SchemaName(clinic)
			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("clinic", "main", "Clinic whose schema is inspected")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a clinic schema and apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Creating clinic schema: %s\n", db.SchemaName(id))
			if err := db.CreateClinicSchema(ctx, pool, id, migrations.FS); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Clinic created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("id", "", "Clinic identifier (lowercase letters, digits, underscore)")

	cmd.AddCommand(createCmd)
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a questionnaire snapshot from a JSON file",
		Long: `Reads {"current": {...}, "previous": {...}} and prints the SRS, phase,
disability percentage and breakdown. Use --file - to read stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			res, err := scoreSnapshots(r)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().String("file", "-", "Path to the JSON request")
	return cmd
}

func scoreSnapshots(r io.Reader) (scoring.Result, error) {
	var req assessment.PreviewRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return scoring.Result{}, fmt.Errorf("decode request: %w", err)
	}
	if err := scoring.ValidateSnapshot(req.Current); err != nil {
		return scoring.Result{}, err
	}
	if req.Previous != nil {
		if err := scoring.ValidateSnapshot(*req.Previous); err != nil {
			return scoring.Result{}, fmt.Errorf("previous: %w", err)
		}
	}
	return scoring.Score(req.Current, req.Previous)
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the checkpoint schedule for an intake date",
		RunE: func(cmd *cobra.Command, args []string) error {
			intake, _ := cmd.Flags().GetString("intake")
			completed, _ := cmd.Flags().GetStringSlice("completed")
			today, _ := cmd.Flags().GetString("today")
			tz, _ := cmd.Flags().GetString("tz")

			rows, err := evaluateSchedule(intake, completed, today, tz, time.Now())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-22s %-12s %s\n", "CHECKPOINT", "DUE", "STATUS")
			for _, r := range rows {
				fmt.Fprintf(w, "%-22s %-12s %s\n", r.Label, r.DueDate.Format("2006-01-02"), r.Status)
			}
			return nil
		},
	}
	cmd.Flags().String("intake", "", "Intake date (YYYY-MM-DD)")
	cmd.Flags().StringSlice("completed", nil, "Completed checkpoint labels")
	cmd.Flags().String("today", "", "Evaluate as of this date (YYYY-MM-DD, default now)")
	cmd.Flags().String("tz", "UTC", "Clinic time zone")
	cmd.MarkFlagRequired("intake")
	return cmd
}

func evaluateSchedule(intake string, completed []string, today, tz string, now time.Time) ([]schedule.CheckpointStatus, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone: %w", err)
	}
	start, err := time.ParseInLocation("2006-01-02", intake, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --intake: %w", err)
	}
	day := now.In(loc)
	if today != "" {
		if day, err = time.ParseInLocation("2006-01-02", today, loc); err != nil {
			return nil, fmt.Errorf("invalid --today: %w", err)
		}
	}

	records := make([]schedule.Record, 0, len(completed))
	for _, label := range completed {
		id, err := schedule.ParseCheckpoint(strings.TrimSpace(label))
		if err != nil {
			return nil, err
		}
		records = append(records, schedule.Record{Checkpoint: id})
	}
	return schedule.Evaluate(start, records, day), nil
}
