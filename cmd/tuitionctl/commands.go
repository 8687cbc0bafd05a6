package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	appRepos "github.com/yigit/tuitiontrack/internal/app/repositories"
	appServices "github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/bootstrap"
	"github.com/yigit/tuitiontrack/internal/config"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/export"
	"github.com/yigit/tuitiontrack/internal/pkg/logger"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
	"github.com/yigit/tuitiontrack/internal/seed"
)

// env is what every subcommand needs once the config is loaded.
type env struct {
	cfg      *config.Config
	logger   zerolog.Logger
	database *db.PostgresDB
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tuitionctl",
		Short:         "Administration tasks for the tuition tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default configs/config.yaml)")

	// connect loads the configuration and opens the database.
	connect := func() (*env, error) {
		cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
		if err != nil {
			return nil, err
		}
		database, err := bootstrap.ConnectDatabase(cfg, lgr)
		if err != nil {
			return nil, err
		}
		return &env{cfg: cfg, logger: lgr, database: database}, nil
	}

	root.AddCommand(
		newMigrateCommand(connect),
		newSeedCommand(connect),
		newCleanupCommand(connect),
		newExportCommand(connect),
	)
	return root
}

type connectFunc func() (*env, error)

func newMigrateCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect()
			if err != nil {
				return err
			}
			defer e.database.Close()
			return bootstrap.RunMigrations(cmd.Context(), e.cfg, e.database.Pool, e.logger)
		},
	}
}

func newSeedCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo tutor with batches and students",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect()
			if err != nil {
				return err
			}
			defer e.database.Close()
			repos := appRepos.NewRepositories(e.database.Pool)
			return seed.CreateDemoData(cmd.Context(), repos, domain.NewClock(e.cfg.Location()), e.logger)
		},
	}
}

func newCleanupCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired homework and, when configured, old attendance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect()
			if err != nil {
				return err
			}
			defer e.database.Close()

			files, err := bootstrap.NewFileStorage(e.cfg)
			if err != nil {
				return err
			}
			repos := appRepos.NewRepositories(e.database.Pool)
			svc := appServices.NewMaintenanceService(
				repos.HomeworkRepository,
				repos.AttendanceRepository,
				files,
				domain.NewClock(e.cfg.Location()),
				e.cfg.Maintenance.AttendanceRetentionDays,
				metrics.New(),
				logger.Component("maintenance"),
			)
			res, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "homework rows: %d, files: %d, attendance rows: %d\n",
				res.HomeworkRows, res.Files, res.AttendanceRows)
			return nil
		},
	}
}

func newExportCommand(connect connectFunc) *cobra.Command {
	var (
		mobile string
		format string
		output string
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:       "export [students|attendance]",
		Short:     "Export a tutor's roster or attendance as CSV or XLSX",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"students", "attendance"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q", format)
			}
			e, err := connect()
			if err != nil {
				return err
			}
			defer e.database.Close()

			ctx := cmd.Context()
			repos := appRepos.NewRepositories(e.database.Pool)
			tutor, err := repos.TutorRepository.GetByMobile(ctx, strings.TrimSpace(mobile))
			if err != nil {
				if errors.Is(err, appRepos.ErrTutorNotFound) {
					return fmt.Errorf("no tutor with mobile %q", mobile)
				}
				return err
			}

			svc := appServices.NewExportService(repos.BatchRepository, repos.StudentRepository, repos.AttendanceRepository,
				domain.NewClock(e.cfg.Location()), e.logger)
			out, err := exportTable(ctx, svc, tutor.ID, args[0], from, to)
			if err != nil {
				return err
			}
			return writeExport(cmd.OutOrStdout(), output, format, out)
		},
	}
	cmd.Flags().StringVar(&mobile, "mobile", "", "mobile number of the tutor")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "first attendance date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last attendance date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("mobile")
	return cmd
}

func exportTable(ctx context.Context, svc *appServices.ExportService, tutorID int64, kind, from, to string) (*appServices.Export, error) {
	if kind == "students" {
		return svc.Students(ctx, tutorID)
	}
	start, end := svc.AttendanceRange(from, to)
	return svc.Attendance(ctx, tutorID, start, end, 0)
}

func writeExport(stdout io.Writer, output, format string, e *appServices.Export) error {
	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	if format == "xlsx" {
		return export.WriteXLSX(w, e.Table)
	}
	return export.WriteCSV(w, e.Table)
}
