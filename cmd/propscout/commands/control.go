package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/control"
)

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd, stopCmd)
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running scrape loop at its next poll point.",
	Run:   issueControl(control.StatePause),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused scrape loop from the exact page and item.",
	Run:   issueControl(control.StateResume),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the scrape loop after the in-flight item completes.",
	Run:   issueControl(control.StateStop),
}

// issueControl writes a control command for the loop to consume. Taking
// effect is bounded by at most one item's processing latency.
func issueControl(state control.State) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		ch, err := control.NewChannel(cfg.ControlPath())
		if err != nil {
			slog.Error("failed to prepare control channel", "error", err)
			os.Exit(1)
		}

		c := control.Command{
			State:       state,
			Timestamp:   time.Now().UTC(),
			Correlation: uuid.NewString(),
		}
		if err := ch.Issue(c); err != nil {
			slog.Error("failed to issue control command", "state", state, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s command issued (%s); the loop picks it up at its next poll point\n",
			state, c.Correlation)
	}
}
