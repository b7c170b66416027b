package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/checkpoint"
	"github.com/propscout/propscout/control"
	"github.com/propscout/propscout/models"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a summary of scrape progress and control state.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		cpStore, err := checkpoint.NewStore(cfg.CheckpointPath())
		if err != nil {
			slog.Error("failed to open checkpoint store", "error", err)
			os.Exit(1)
		}
		cp, err := cpStore.Load()
		if err != nil {
			slog.Error("failed to read checkpoint", "error", err)
			os.Exit(1)
		}
		if cp == nil {
			fmt.Println("no checkpoint found: no scrape has run yet")
			return
		}

		ctrl, err := control.NewChannel(cfg.ControlPath())
		if err != nil {
			slog.Error("failed to open control channel", "error", err)
			os.Exit(1)
		}

		now := time.Now().UTC()
		elapsed := now.Sub(cp.StartedAt).Round(time.Second)
		active := cp.ActiveRuntime(now).Round(time.Second)
		paused := (elapsed - active).Round(time.Second)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendRows([]table.Row{
			{"Session", cp.SessionID},
			{"Status", sessionState(cp)},
			{"Position", fmt.Sprintf("page %d, item %d", cp.CurrentPage+1, cp.CurrentItem)},
			{"Pages completed", len(cp.CompletedPages)},
			{"Last item", cp.LastIdentityKey},
		})
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Scraped", cp.Counts.Scraped},
			{"New", cp.Counts.New},
			{"Updated", cp.Counts.Updated},
			{"Duplicates", cp.Counts.Duplicates},
			{"Errors", fmt.Sprintf("%d (%d recent kept, %d dropped)",
				cp.TotalErrors, len(cp.Errors), cp.DroppedErrors)},
		})
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Elapsed", elapsed},
			{"Paused", paused},
			{"Active", active},
		})
		if !cp.PausedAt.IsZero() {
			t.AppendRow(table.Row{"Paused since", cp.PausedAt.Format(time.RFC3339)})
		}
		if eta := estimateRemaining(cp, cfg.Source.MaxPages, active); eta > 0 {
			t.AppendRow(table.Row{"Est. remaining", eta.Round(time.Second)})
		}
		if pending := ctrl.Peek(); pending != nil {
			t.AppendSeparator()
			t.AppendRow(table.Row{"Pending command",
				fmt.Sprintf("%s (issued %s)", pending.State, pending.Timestamp.Format(time.RFC3339))})
		}
		t.Render()

		if len(cp.Errors) > 0 {
			fmt.Println()
			et := table.NewWriter()
			et.SetOutputMirror(os.Stdout)
			et.SetStyle(table.StyleLight)
			et.AppendHeader(table.Row{"Page", "Item", "Identity key", "Error", "At"})
			for _, e := range cp.Errors {
				et.AppendRow(table.Row{e.Page + 1, e.Item, e.IdentityKey, e.Message,
					e.At.Format(time.RFC3339)})
			}
			et.Render()
		}
	},
}

func sessionState(cp *checkpoint.Checkpoint) string {
	st := models.SessionStatus(cp.SessionStatus)
	if st == "" {
		if !cp.PausedAt.IsZero() {
			return "paused"
		}
		return "unknown"
	}
	if !st.Terminal() {
		// A live scraper owns this checkpoint, or one crashed mid-run.
		return string(st) + " (live or interrupted)"
	}
	return string(st)
}

// estimateRemaining projects completion time from the page-progress ratio.
// Without a configured page cap there is no denominator to project from.
func estimateRemaining(cp *checkpoint.Checkpoint, maxPages int, active time.Duration) time.Duration {
	done := len(cp.CompletedPages)
	if maxPages <= 0 || done == 0 || done >= maxPages {
		return 0
	}
	perPage := active / time.Duration(done)
	return perPage * time.Duration(maxPages-done)
}
