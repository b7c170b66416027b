package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/checkpoint"
	"github.com/propscout/propscout/control"
	"github.com/propscout/propscout/extractor"
	"github.com/propscout/propscout/navigator"
	"github.com/propscout/propscout/runner"
	"github.com/propscout/propscout/storage"
	"github.com/propscout/propscout/syncer"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Start or resume the scrape loop.",
	Long: `Starts the scrape loop. Unless the previous run completed, the loop
resumes at the exact page and item it last persisted. Exit codes: 0 on
completion, 3 on operator stop, 2 on a persistence failure, 1 on an
unrecoverable startup failure.`,
	Run: func(cmd *cobra.Command, args []string) {
		// os.Exit skips deferred cleanup, so the wiring lives in its own
		// function and only the code it returns reaches Exit. Without this
		// the browser would be left running on every path.
		os.Exit(runScrape(cmd.Context()))
	},
}

func runScrape(ctx context.Context) int {
	cfg := loadConfig()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("failed to open backing store", "path", cfg.Storage.DBPath, "error", err)
		return 1
	}
	defer store.Close()

	cpStore, err := checkpoint.NewStore(cfg.CheckpointPath())
	if err != nil {
		slog.Error("failed to prepare checkpoint store", "error", err)
		return 1
	}
	ctrl, err := control.NewChannel(cfg.ControlPath())
	if err != nil {
		slog.Error("failed to prepare control channel", "error", err)
		return 1
	}

	nav, err := navigator.New(cfg.Browser, cfg.Scraper, cfg.Source)
	if err != nil {
		slog.Error("failed to start browser", "error", err)
		return 1
	}
	defer nav.Close()

	recon, err := syncer.New(store)
	if err != nil {
		slog.Error("failed to initialise syncer", "error", err)
		return 1
	}

	metrics := runner.NewMetrics()
	nav.SetRetryHook(metrics.RetriesTotal.Inc)
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go serveMetrics(addr, metrics)
	}

	items := extractor.NewItemExtractor(nav, extractor.New(cfg.Scraper.SettleTimeout))

	r := runner.New(
		navAdapter{nav}, items, recon, store,
		cpStore, ctrl, metrics,
		runner.Options{
			MaxPages:        cfg.Source.MaxPages,
			PollInterval:    cfg.Scraper.ControlPollInterval,
			ErrorCap:        cfg.Scraper.ErrorCap,
			MaxPageFailures: cfg.Scraper.MaxPageFailures,
		},
	)

	sess, runErr := r.Run(ctx)
	if runErr != nil {
		slog.Error("scrape run failed", "error", runErr)
	}
	if sess == nil {
		return 1
	}
	return runner.ExitCode(sess.Status)
}

// navAdapter narrows the concrete navigator to the runner's PageOpener.
type navAdapter struct {
	nav *navigator.Navigator
}

func (a navAdapter) OpenListing(ctx context.Context, pageIndex int) (runner.Listing, error) {
	page, err := a.nav.OpenListing(ctx, pageIndex)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func serveMetrics(addr string, m *runner.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics endpoint stopped", "error", err)
	}
}
