// Command ingest runs one ingestion pass for the configured index
// families and exits. An external timer (cron, systemd) invokes it on the
// publisher's monthly cadence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"indexcli/internal/app"
	"indexcli/internal/config"
	"indexcli/internal/infrastructure"
	"indexcli/pkg/contracts/domain"
)

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			if logger != nil {
				logger.Error("ingest panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	families := flag.String("families", "", "comma-separated family ids (default: configured set)")
	regions := flag.String("regions", "", "comma-separated subset of the configured regions")
	from := flag.String("from", "", "override start period (MM/YYYY)")
	end := flag.String("end", "", "override end period (now | now-N | MM/YYYY)")
	gaps := flag.Bool("gaps", true, "plan only periods missing from storage")
	headless := flag.Bool("headless", true, "run the fallback browser headless")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *families != "" {
		cfg.Ingest.Families = strings.Split(*families, ",")
	}
	if *regions != "" {
		if err := cfg.RestrictRegions(strings.Split(*regions, ",")); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *from != "" {
		cfg.Ingest.From = *from
	}
	if *end != "" {
		cfg.Ingest.End = *end
	}
	cfg.Ingest.GapMode = *gaps
	cfg.Publisher.Headless = *headless
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger = infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	logger.Info("index ingestion starting",
		slog.String("families", strings.Join(cfg.Ingest.Families, ",")),
		slog.String("from", cfg.Ingest.From),
		slog.String("end", cfg.Ingest.End),
		slog.Bool("gap_mode", cfg.Ingest.GapMode))

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to assemble application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Close()

	results, err := application.RunAll(context.Background())
	if err != nil {
		logger.Error("ingestion run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	failures := 0
	for _, result := range results {
		failures += result.FailureCount
		logger.Info("family summary",
			slog.String("family", result.Family),
			slog.String("range", result.PeriodRange.String()),
			slog.Int("success", result.SuccessCount),
			slog.Int("failure", result.FailureCount),
			slog.Int("secondary", result.CountsByMethod[domain.MethodSecondary]))
	}
	if failures > 0 {
		logger.Warn("run finished with partial failures", slog.Int("failed_tasks", failures))
	}
	logger.Info("ingestion finished")
}
