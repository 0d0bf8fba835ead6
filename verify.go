package main

import (
	"context"
	"fmt"
	"io"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/service"
	"github.com/spf13/cobra"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the configuration and the services it points to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.AnalysisTimeout())
			defer cancel()
			return verify(ctx, cmd.OutOrStdout(), cfg)
		},
	}
}

// verify runs every check, prints one line per result and fails if any failed
func verify(ctx context.Context, w io.Writer, cfg *config.Config) error {
	failed := 0
	check := func(name string, err error) {
		if err != nil {
			failed++
			fmt.Fprintf(w, "✗ %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(w, "✓ %s\n", name)
	}

	fmt.Fprintf(w, "Analysis service: %s (timeout %s)\n", cfg.Analysis.BaseURL, cfg.AnalysisTimeout())
	client := service.NewAnalysisClient(&cfg.Analysis)
	check("analysis service reachable", client.Ping(ctx))

	fmt.Fprintf(w, "Contract library: %s\n", cfg.Library.Source)
	library, err := service.NewLibrary(cfg, client)
	if err == nil {
		listCtx, cancel := context.WithTimeout(ctx, cfg.LibraryLoadingDelay()+cfg.AnalysisTimeout())
		list, listErr := library.List(listCtx)
		cancel()
		if listErr == nil {
			fmt.Fprintf(w, "  %d contracts listed\n", len(list))
		}
		err = listErr
	}
	check("contract library readable", err)

	switch cfg.Report.Mode {
	case config.ReportModeSimulated:
		fmt.Fprintf(w, "Reports: simulated (%s)\n", cfg.SimulatedExportDelay())
	case config.ReportModeAPI:
		fmt.Fprintln(w, "Reports: downloaded from the analysis service")
	default:
		check("report mode", fmt.Errorf("unknown report mode %q", cfg.Report.Mode))
	}

	if cfg.Minio.Enabled {
		fmt.Fprintf(w, "Report cache: %s/%s\n", cfg.Minio.Endpoint, cfg.Minio.Bucket)
		cache, err := service.NewReportCache(&cfg.Minio)
		if err == nil {
			_, err = cache.Exists(ctx, "verify")
		}
		check("report cache reachable", err)
	}

	if cfg.Session.Secret == "" {
		fmt.Fprintln(w, "! session.secret is empty: sessions will not survive a restart")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintln(w, "All checks passed")
	return nil
}
