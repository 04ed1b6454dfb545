// Command recompute replays the full attendance history for one employee
// (or every employee with events) and overwrites the derived calendars and
// statistics. It is the repair path for aggregate drift and backfills.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/presensia/attendance-engine/internal/config"
	"github.com/presensia/attendance-engine/internal/pkg/database"
	"github.com/presensia/attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/presensia/attendance-engine/internal/service/attendance"
)

func main() {
	var (
		employeeID  string
		all         bool
		concurrency int
	)
	flag.StringVar(&employeeID, "employee", "", "employee id to recompute")
	flag.BoolVar(&all, "all", false, "recompute every employee with attendance events")
	flag.IntVar(&concurrency, "concurrency", 4, "max employees recomputed in parallel")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "attendance-engine"),
		slog.String("component", "recompute"),
		slog.String("env", cfg.App.Env),
	)

	if employeeID == "" && !all {
		logger.Error("either -employee or -all is required")
		os.Exit(1)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	eventRepo := postgresql.NewEventRepository(db)
	calendarRepo := postgresql.NewCalendarRepository(db)
	statisticsRepo := postgresql.NewStatisticsRepository(db)
	service := attendanceService.NewAttendanceService(
		postgresql.NewTxManager(db),
		eventRepo,
		calendarRepo,
		statisticsRepo,
		cfg.Location(),
	)

	ctx := context.Background()

	ids := []string{employeeID}
	if all {
		ids, err = eventRepo.ListEmployeeIDs(ctx)
		if err != nil {
			logger.Error("failed to list employees", "error", err)
			os.Exit(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			stats, err := service.RecomputeStatistics(gctx, id)
			if err != nil {
				logger.Error("recompute failed", "employee_id", id, "error", err)
				return err
			}
			logger.Info("recomputed",
				"employee_id", id,
				"total_days", stats.TotalDays,
				"current_streak", stats.CurrentStreak,
				"longest_streak", stats.LongestStreak,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		os.Exit(1)
	}
	logger.Info("done", "employees", len(ids))
}
